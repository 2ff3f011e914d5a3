// Package cache memoises query results keyed by a hash of the full query.
package cache

import (
	"context"
	"strconv"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/23skdu/wordscope/internal/query"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Querier is the subset of query.Engine the cache decorates.
type Querier interface {
	ByToken(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error)
	ByVector(ctx context.Context, vec []float32, k int) ([]core.Match, error)
	Analogy(ctx context.Context, positive, negative []string, k int) ([]core.Match, error)
}

// CachedEngine answers repeated queries from memory. Because the underlying
// index is immutable, a cached result is always the result the engine would
// return again. Errors are never cached.
type CachedEngine struct {
	next   Querier
	cache  *QueryCache[[]core.Match]
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCachedEngine wraps next with an LRU of the given capacity.
func NewCachedEngine(next Querier, capacity int, logger zerolog.Logger) *CachedEngine {
	return &CachedEngine{
		next:   next,
		cache:  NewQueryCache[[]core.Match](capacity),
		logger: logger,
	}
}

func (c *CachedEngine) ByToken(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error) {
	req := query.Request{Kind: core.KindToken, Token: token, K: k, ExcludeSelf: excludeSelf}
	return c.do(ctx, &req, func() ([]core.Match, error) {
		return c.next.ByToken(ctx, token, k, excludeSelf)
	})
}

func (c *CachedEngine) ByVector(ctx context.Context, vec []float32, k int) ([]core.Match, error) {
	req := query.Request{Kind: core.KindVector, Vector: vec, K: k}
	return c.do(ctx, &req, func() ([]core.Match, error) {
		return c.next.ByVector(ctx, vec, k)
	})
}

func (c *CachedEngine) Analogy(ctx context.Context, positive, negative []string, k int) ([]core.Match, error) {
	req := query.Request{Kind: core.KindAnalogy, Positive: positive, Negative: negative, K: k}
	return c.do(ctx, &req, func() ([]core.Match, error) {
		return c.next.Analogy(ctx, positive, negative, k)
	})
}

// Len returns the number of cached results.
func (c *CachedEngine) Len() int { return c.cache.Len() }

func (c *CachedEngine) do(ctx context.Context, req *query.Request, compute func() ([]core.Match, error)) ([]core.Match, error) {
	kind := string(req.Kind)
	key := HashRequest(req)

	if res, ok := c.cache.Get(key); ok {
		metrics.QueryCacheHitsTotal.WithLabelValues(kind).Inc()
		return clone(res), nil
	}
	metrics.QueryCacheMissesTotal.WithLabelValues(kind).Inc()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, shared := c.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		// A flight that finished between the lookup above and this call
		// has already stored the result.
		if res, ok := c.cache.Get(key); ok {
			return res, nil
		}
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Str("kind", kind).Msg("Shared in-flight query result")
	}
	return clone(v.([]core.Match)), nil
}

func clone(in []core.Match) []core.Match {
	out := make([]core.Match, len(in))
	copy(out, in)
	return out
}
