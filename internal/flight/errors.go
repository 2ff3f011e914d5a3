package flight

import (
	"context"
	"errors"

	"github.com/23skdu/wordscope/internal/core"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToGRPCStatus maps engine errors onto gRPC status codes. Errors that are
// already statuses pass through unchanged.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		unknownErr  *core.ErrUnknownToken
		invalidErr  *core.ErrInvalidArgument
		dimErr      *core.ErrDimensionMismatch
		emptyErr    *core.ErrEmptyIndex
		emptyVocErr *core.ErrEmptyVocabulary
	)

	switch {
	case errors.As(err, &unknownErr):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &invalidErr), errors.As(err, &dimErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &emptyErr), errors.As(err, &emptyVocErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
