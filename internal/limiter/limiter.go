// Package limiter throttles Flight requests with a shared token bucket.
package limiter

import (
	"context"
	"errors"

	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config holds rate limiter configuration
type Config struct {
	RPS   int `envconfig:"RATE_LIMIT_RPS" default:"0"`   // 0 means disabled
	Burst int `envconfig:"RATE_LIMIT_BURST" default:"0"` // 0 means use RPS
}

// RateLimiter wraps the token bucket limiter
type RateLimiter struct {
	limiter *rate.Limiter
	enabled bool
	logger  zerolog.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg Config, logger zerolog.Logger) *RateLimiter {
	if cfg.RPS <= 0 {
		return &RateLimiter{enabled: false, logger: logger}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RPS
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		enabled: true,
		logger:  logger,
	}
}

// Enabled reports whether requests are throttled at all.
func (l *RateLimiter) Enabled() bool { return l.enabled }

// wait blocks until a token is available. Requests that cannot be served
// before their deadline are rejected with ResourceExhausted.
func (l *RateLimiter) wait(ctx context.Context, method string) error {
	if !l.enabled {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return status.FromContextError(err).Err()
		}
		metrics.RateLimitRequestsTotal.WithLabelValues("throttled").Inc()
		l.logger.Debug().Str("method", method).Msg("Request throttled")
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
	return nil
}

// UnaryInterceptor returns a gRPC unary interceptor
func (l *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := l.wait(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a gRPC stream interceptor
func (l *RateLimiter) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := l.wait(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// ServerOptions returns the interceptors as gRPC server options.
func (l *RateLimiter) ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(l.UnaryInterceptor()),
		grpc.ChainStreamInterceptor(l.StreamInterceptor()),
	}
}
