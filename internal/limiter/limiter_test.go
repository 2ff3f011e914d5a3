package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestNewRateLimiter(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 0}, zerolog.Nop())
	assert.False(t, l.Enabled())

	l = NewRateLimiter(Config{RPS: 10, Burst: 20}, zerolog.Nop())
	assert.True(t, l.Enabled())
	require.NotNil(t, l.limiter)
	assert.Equal(t, float64(10), float64(l.limiter.Limit()))
	assert.Equal(t, 20, l.limiter.Burst())

	l = NewRateLimiter(Config{RPS: 5}, zerolog.Nop())
	assert.Equal(t, 5, l.limiter.Burst())
}

func TestUnaryInterceptorDisabledPassesThrough(t *testing.T) {
	l := NewRateLimiter(Config{}, zerolog.Nop())
	interceptor := l.UnaryInterceptor()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	for i := 0; i < 100; i++ {
		res, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", res)
	}
}

func TestUnaryInterceptorThrottles(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 1}, zerolog.Nop())
	interceptor := l.UnaryInterceptor()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/t"}, handler)
	require.NoError(t, err)

	// The next token is a second away; a 10ms deadline cannot be met.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/t"}, handler)
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Contains(t, []codes.Code{codes.ResourceExhausted, codes.DeadlineExceeded}, st.Code())
}

func TestUnaryInterceptorCanceled(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 1}, zerolog.Nop())
	interceptor := l.UnaryInterceptor()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	assert.Equal(t, codes.Canceled, status.Code(err))
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context     { return f.ctx }
func (f *fakeStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeStream) SetTrailer(metadata.MD)       {}

func TestStreamInterceptor(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 1}, zerolog.Nop())
	interceptor := l.StreamInterceptor()

	calls := 0
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		calls++
		return nil
	}

	err := interceptor(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/s"}, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = interceptor(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/s"}, handler)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestServerOptions(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 3}, zerolog.Nop())
	assert.Len(t, l.ServerOptions(), 2)
}
