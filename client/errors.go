package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/23skdu/wordscope/internal/core"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrServer carries a server-side failure that has no local error type.
type ErrServer struct {
	Code    codes.Code
	Message string
}

func (e *ErrServer) Error() string {
	return fmt.Sprintf("server error (%s): %s", e.Code, e.Message)
}

const unknownTokenPrefix = "unknown token: "

// fromStatus turns gRPC statuses back into the engine's error types so
// callers can use errors.As the same way they would in-process.
func fromStatus(err error, token string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		// Stream errors arrive wrapped by the IPC reader, so search the
		// whole message.
		if i := strings.LastIndex(st.Message(), unknownTokenPrefix); i >= 0 {
			if unquoted, err := strconv.Unquote(st.Message()[i+len(unknownTokenPrefix):]); err == nil {
				token = unquoted
			}
		}
		if token != "" {
			return core.NewUnknownTokenError(token)
		}
	case codes.InvalidArgument:
		return core.NewInvalidArgumentError("", st.Message())
	}
	return &ErrServer{Code: st.Code(), Message: st.Message()}
}
