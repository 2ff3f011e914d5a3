package health

import (
	"context"
	"time"

	"github.com/23skdu/wordscope/internal/core"
)

// Prober is the query surface the engine checker exercises.
type Prober interface {
	Tokens() []string
	ByToken(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error)
}

// EngineChecker runs a one-result query for the first vocabulary token and
// expects that token back.
type EngineChecker struct {
	engine Prober
	probe  string
	slow   time.Duration
}

func NewEngineChecker(engine Prober) *EngineChecker {
	c := &EngineChecker{engine: engine, slow: 250 * time.Millisecond}
	if tokens := engine.Tokens(); len(tokens) > 0 {
		c.probe = tokens[0]
	}
	return c
}

func (c *EngineChecker) Name() string { return "engine" }

func (c *EngineChecker) Check(ctx context.Context) *ComponentHealth {
	start := time.Now()
	ch := &ComponentHealth{Name: c.Name(), Status: StatusHealthy, Metadata: map[string]interface{}{"probe": c.probe}}

	res, err := c.engine.ByToken(ctx, c.probe, 1, false)
	elapsed := time.Since(start)
	ch.LastChecked = time.Now()
	ch.Metadata["response_time_ms"] = elapsed.Milliseconds()

	switch {
	case err != nil:
		ch.Status = StatusUnhealthy
		ch.Message = err.Error()
	case len(res) == 0 || res[0].Token != c.probe:
		ch.Status = StatusUnhealthy
		ch.Message = "probe token is not its own nearest neighbour"
	case elapsed > c.slow:
		ch.Status = StatusDegraded
		ch.Message = "engine responding slowly"
	}
	return ch
}

// Sizer reports an entry count.
type Sizer interface {
	Len() int
}

// CacheChecker reports result cache occupancy. It is always healthy.
type CacheChecker struct {
	cache Sizer
}

func NewCacheChecker(cache Sizer) *CacheChecker {
	return &CacheChecker{cache: cache}
}

func (c *CacheChecker) Name() string { return "cache" }

func (c *CacheChecker) Check(_ context.Context) *ComponentHealth {
	return &ComponentHealth{
		Name:        c.Name(),
		Status:      StatusHealthy,
		LastChecked: time.Now(),
		Metadata:    map[string]interface{}{"entries": c.cache.Len()},
	}
}
