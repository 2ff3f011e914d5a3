// Package query answers similarity, raw-vector and analogy queries against an
// embedding table and its ANN index.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/23skdu/wordscope/internal/ann"
	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultEpsilon keeps similarity finite for zero distances and compresses
// the score range of near-duplicates.
const DefaultEpsilon float32 = 0.1

// Similarity converts an index distance into a score. It is strictly
// decreasing in distance, so ranking order is preserved.
func Similarity(distance, epsilon float32) float32 {
	return 1 / (distance + epsilon)
}

// Engine is safe for concurrent use; it only reads immutable state.
type Engine struct {
	table   *embedding.Table
	pair    *ann.Pair
	epsilon float32
	logger  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEpsilon overrides the similarity smoothing constant.
func WithEpsilon(eps float32) Option {
	return func(e *Engine) {
		if eps > 0 {
			e.epsilon = eps
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine binds a table to the index pair built from it.
func NewEngine(table *embedding.Table, pair *ann.Pair, opts ...Option) (*Engine, error) {
	if table == nil || pair == nil {
		return nil, core.NewInvalidArgumentError("engine", "table and index are required")
	}
	if pair.Vocab.Len() != table.Len() || pair.Index.Dimension() != table.Dimension() {
		return nil, core.NewInvalidArgumentError("engine", "index was not built from this table")
	}
	e := &Engine{
		table:   table,
		pair:    pair,
		epsilon: DefaultEpsilon,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dimension returns the vector dimensionality.
func (e *Engine) Dimension() int { return e.table.Dimension() }

// Len returns the vocabulary size.
func (e *Engine) Len() int { return e.table.Len() }

// Backend reports which ANN structure serves queries.
func (e *Engine) Backend() core.IndexBackend { return e.pair.Backend }

// Metric reports the distance the index ranks by.
func (e *Engine) Metric() core.DistanceMetric { return e.pair.Index.Metric() }

// Tokens returns the vocabulary in load order.
func (e *Engine) Tokens() []string { return e.table.Tokens() }

// Vector returns a copy of the raw vector for token.
func (e *Engine) Vector(token string) ([]float32, error) {
	vec, ok := e.table.Get(token)
	if !ok {
		return nil, core.NewUnknownTokenError(token)
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

// ByToken returns the approximate k nearest tokens to token. When
// excludeSelf is set the token is dropped after ranking, so the result may
// hold k-1 entries.
func (e *Engine) ByToken(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error) {
	start := time.Now()
	vec, ok := e.table.Get(token)
	if !ok {
		return nil, e.fail(core.KindToken, core.NewUnknownTokenError(token))
	}

	neighbors, err := e.neighbors(ctx, vec, k)
	if err != nil {
		return nil, e.fail(core.KindToken, err)
	}

	var res []core.Match
	if excludeSelf {
		res = e.matches(neighbors, []string{token})
	} else {
		id, _ := e.pair.Vocab.ID(token)
		res = e.matches(selfFirst(neighbors, id, k), nil)
	}
	metrics.QueryLatencySeconds.WithLabelValues(string(core.KindToken)).Observe(time.Since(start).Seconds())
	return res, nil
}

// ByVector returns the approximate k nearest tokens to vec. The result is
// not guaranteed to be the exact top k.
func (e *Engine) ByVector(ctx context.Context, vec []float32, k int) ([]core.Match, error) {
	start := time.Now()
	res, err := e.search(ctx, vec, k, nil)
	if err != nil {
		return nil, e.fail(core.KindVector, err)
	}
	metrics.QueryLatencySeconds.WithLabelValues(string(core.KindVector)).Observe(time.Since(start).Seconds())
	return res, nil
}

// Analogy queries with sum(positive) - sum(negative) and removes every input
// term from the ranked result.
func (e *Engine) Analogy(ctx context.Context, positive, negative []string, k int) ([]core.Match, error) {
	start := time.Now()
	vec, err := e.combine(positive, negative)
	if err != nil {
		return nil, e.fail(core.KindAnalogy, err)
	}

	exclude := make([]string, 0, len(positive)+len(negative))
	exclude = append(exclude, positive...)
	exclude = append(exclude, negative...)

	res, err := e.search(ctx, vec, k, exclude)
	if err != nil {
		return nil, e.fail(core.KindAnalogy, err)
	}
	metrics.QueryLatencySeconds.WithLabelValues(string(core.KindAnalogy)).Observe(time.Since(start).Seconds())
	return res, nil
}

// Do dispatches a Request to the matching entry point.
func (e *Engine) Do(ctx context.Context, req Request) ([]core.Match, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Kind {
	case core.KindToken:
		return e.ByToken(ctx, req.Token, req.K, req.ExcludeSelf)
	case core.KindAnalogy:
		return e.Analogy(ctx, req.Positive, req.Negative, req.K)
	default:
		return e.ByVector(ctx, req.Vector, req.K)
	}
}

func (e *Engine) combine(positive, negative []string) ([]float32, error) {
	if len(positive) == 0 && len(negative) == 0 {
		return nil, core.NewInvalidArgumentError("positive", "analogy needs at least one term")
	}
	out := make([]float32, e.table.Dimension())
	for _, term := range positive {
		vec, ok := e.table.Get(term)
		if !ok {
			return nil, core.NewUnknownTokenError(term)
		}
		for i, v := range vec {
			out[i] += v
		}
	}
	for _, term := range negative {
		vec, ok := e.table.Get(term)
		if !ok {
			return nil, core.NewUnknownTokenError(term)
		}
		for i, v := range vec {
			out[i] -= v
		}
	}
	return out, nil
}

func (e *Engine) search(ctx context.Context, vec []float32, k int, exclude []string) ([]core.Match, error) {
	neighbors, err := e.neighbors(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	return e.matches(neighbors, exclude), nil
}

func (e *Engine) neighbors(ctx context.Context, vec []float32, k int) ([]core.Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.pair.Index.Search(vec, k)
}

func (e *Engine) matches(neighbors []core.Neighbor, exclude []string) []core.Match {
	out := make([]core.Match, 0, len(neighbors))
	for _, n := range neighbors {
		token := e.pair.Vocab.Token(n.ID)
		if contains(exclude, token) {
			continue
		}
		out = append(out, core.Match{Token: token, Score: Similarity(n.Distance, e.epsilon)})
	}
	return out
}

// selfFirst puts the query's own ID at distance zero in front. Vectors that
// point the same way tie at zero under the angular metric, and the index
// breaks that tie by ID, which can push the query token down or out.
func selfFirst(neighbors []core.Neighbor, self core.VectorID, k int) []core.Neighbor {
	out := make([]core.Neighbor, 0, len(neighbors)+1)
	out = append(out, core.Neighbor{ID: self})
	for _, n := range neighbors {
		if n.ID != self {
			out = append(out, n)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (e *Engine) fail(kind core.QueryKind, err error) error {
	reason := Reason(err)
	metrics.QueryErrorsTotal.WithLabelValues(string(kind), reason).Inc()
	e.logger.Debug().
		Str("kind", string(kind)).
		Str("reason", reason).
		Err(err).
		Msg("Query failed")
	return err
}

// Reason classifies a query error for metrics and transport mapping.
func Reason(err error) string {
	var (
		unknown  *core.ErrUnknownToken
		mismatch *core.ErrDimensionMismatch
		invalid  *core.ErrInvalidArgument
	)
	switch {
	case errors.As(err, &unknown):
		return "unknown_token"
	case errors.As(err, &mismatch):
		return "dimension_mismatch"
	case errors.As(err, &invalid):
		return "invalid_argument"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
