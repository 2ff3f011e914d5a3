package query

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/23skdu/wordscope/internal/ann"
	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureTokens = []string{"king", "queen", "man", "woman", "prince", "apple", "pear"}

var fixtureVectors = [][]float32{
	{1, 1, 0, 0},
	{0, 1, 1, 0},
	{1, 0, 0, 0},
	{0, 0, 1, 0},
	{0.9, 1, 0, 0.2},
	{0, 0, 0, 1},
	{0.1, 0, 0, 1},
}

func newFixtureEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	table, err := embedding.FromVectors(fixtureTokens, fixtureVectors)
	require.NoError(t, err)
	cfg := ann.DefaultConfig()
	cfg.NumTrees = 4
	cfg.BuildWorkers = 2
	pair, err := ann.Build(context.Background(), table, cfg, zerolog.Nop())
	require.NoError(t, err)
	engine, err := NewEngine(table, pair, opts...)
	require.NoError(t, err)
	return engine
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 10, Similarity(0, DefaultEpsilon), 1e-5)
	assert.InDelta(t, 1/1.1, Similarity(1, DefaultEpsilon), 1e-5)
	assert.Greater(t, Similarity(0.5, DefaultEpsilon), Similarity(0.6, DefaultEpsilon))
}

func TestNewEngineRejectsMismatchedPair(t *testing.T) {
	engine := newFixtureEngine(t)

	other, err := embedding.FromVectors([]string{"a"}, [][]float32{{1, 2, 3, 4}})
	require.NoError(t, err)
	_, err = NewEngine(other, engine.pair)
	var ia *core.ErrInvalidArgument
	assert.True(t, errors.As(err, &ia))

	_, err = NewEngine(nil, nil)
	assert.True(t, errors.As(err, &ia))
}

func TestByTokenSelfIsTopMatch(t *testing.T) {
	engine := newFixtureEngine(t)
	for _, token := range fixtureTokens {
		res, err := engine.ByToken(context.Background(), token, 3, false)
		require.NoError(t, err)
		require.NotEmpty(t, res)
		assert.Equal(t, token, res[0].Token)
		assert.InDelta(t, 1/DefaultEpsilon, res[0].Score, 1e-3)
	}
}

func TestByTokenExcludeSelf(t *testing.T) {
	engine := newFixtureEngine(t)
	res, err := engine.ByToken(context.Background(), "king", 3, true)
	require.NoError(t, err)

	// Exclusion happens after ranking, so one slot is lost.
	assert.Len(t, res, 2)
	for _, m := range res {
		assert.NotEqual(t, "king", m.Token)
	}
	assert.Equal(t, "prince", res[0].Token)
}

func TestByTokenOrderingAndUniqueness(t *testing.T) {
	engine := newFixtureEngine(t)
	res, err := engine.ByToken(context.Background(), "apple", 20, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res), 20)
	assert.Len(t, res, len(fixtureTokens))

	seen := make(map[string]bool)
	for i, m := range res {
		assert.False(t, seen[m.Token], "duplicate %s", m.Token)
		seen[m.Token] = true
		if i > 0 {
			assert.GreaterOrEqual(t, res[i-1].Score, m.Score)
		}
	}
}

func TestByTokenUnknown(t *testing.T) {
	engine := newFixtureEngine(t)
	_, err := engine.ByToken(context.Background(), "King", 5, false)
	var ut *core.ErrUnknownToken
	require.True(t, errors.As(err, &ut))
	assert.Equal(t, "King", ut.Token)
}

func TestByTokenInvalidK(t *testing.T) {
	engine := newFixtureEngine(t)
	_, err := engine.ByToken(context.Background(), "king", 0, false)
	var ia *core.ErrInvalidArgument
	assert.True(t, errors.As(err, &ia))
}

func TestByVector(t *testing.T) {
	engine := newFixtureEngine(t)
	res, err := engine.ByVector(context.Background(), []float32{0, 2, 2, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "queen", res[0].Token)
}

func TestByVectorDimensionMismatch(t *testing.T) {
	engine := newFixtureEngine(t)
	_, err := engine.ByVector(context.Background(), []float32{1, 2}, 3)
	var dm *core.ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestByVectorRejectsNonFinite(t *testing.T) {
	engine := newFixtureEngine(t)
	for _, vec := range [][]float32{
		{float32(math.NaN()), 0, 0, 0},
		{0, float32(math.Inf(1)), 0, 0},
		{0, 0, float32(math.Inf(-1)), 0},
	} {
		_, err := engine.ByVector(context.Background(), vec, 3)
		var ia *core.ErrInvalidArgument
		assert.True(t, errors.As(err, &ia), "vector %v", vec)
	}
}

func TestByTokenParallelVectorsRankSelfFirst(t *testing.T) {
	tokens := []string{"low", "high", "other"}
	vectors := [][]float32{{1, 1}, {2, 2}, {1, 0}}
	for _, backend := range []core.IndexBackend{core.BackendForest, core.BackendHNSW} {
		t.Run(string(backend), func(t *testing.T) {
			table, err := embedding.FromVectors(tokens, vectors)
			require.NoError(t, err)
			cfg := ann.DefaultConfig()
			cfg.Backend = backend
			pair, err := ann.Build(context.Background(), table, cfg, zerolog.Nop())
			require.NoError(t, err)
			engine, err := NewEngine(table, pair)
			require.NoError(t, err)

			for _, token := range []string{"low", "high"} {
				res, err := engine.ByToken(context.Background(), token, 1, false)
				require.NoError(t, err)
				require.Len(t, res, 1)
				assert.Equal(t, token, res[0].Token)

				res, err = engine.ByToken(context.Background(), token, 3, false)
				require.NoError(t, err)
				require.Len(t, res, 3)
				assert.Equal(t, token, res[0].Token)
				for i := 1; i < len(res); i++ {
					assert.NotEqual(t, token, res[i].Token)
					assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
				}
			}
		})
	}
}

func TestByVectorCanceled(t *testing.T) {
	engine := newFixtureEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.ByVector(ctx, []float32{1, 0, 0, 0}, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", Reason(err))
}

func TestAnalogy(t *testing.T) {
	engine := newFixtureEngine(t)
	res, err := engine.Analogy(context.Background(), []string{"king", "woman"}, []string{"man"}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "queen", res[0].Token)
	for _, m := range res {
		assert.NotContains(t, []string{"king", "woman", "man"}, m.Token)
	}
}

func TestAnalogyNegativeOnly(t *testing.T) {
	engine := newFixtureEngine(t)
	res, err := engine.Analogy(context.Background(), nil, []string{"apple"}, 2)
	require.NoError(t, err)
	for _, m := range res {
		assert.NotEqual(t, "apple", m.Token)
	}
}

func TestAnalogyErrors(t *testing.T) {
	engine := newFixtureEngine(t)

	_, err := engine.Analogy(context.Background(), nil, nil, 3)
	var ia *core.ErrInvalidArgument
	assert.True(t, errors.As(err, &ia))

	_, err = engine.Analogy(context.Background(), []string{"king", "emperor"}, []string{"man"}, 3)
	var ut *core.ErrUnknownToken
	require.True(t, errors.As(err, &ut))
	assert.Equal(t, "emperor", ut.Token)
}

func TestVectorReturnsCopy(t *testing.T) {
	engine := newFixtureEngine(t)
	vec, err := engine.Vector("man")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, vec)

	vec[0] = 42
	again, err := engine.Vector("man")
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0])

	_, err = engine.Vector("woman ")
	assert.Equal(t, "unknown_token", Reason(err))
}

func TestWithEpsilon(t *testing.T) {
	engine := newFixtureEngine(t, WithEpsilon(0.5))
	res, err := engine.ByToken(context.Background(), "pear", 1, false)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 2, res[0].Score, 1e-3)
}

func TestDoDispatch(t *testing.T) {
	engine := newFixtureEngine(t)
	ctx := context.Background()

	res, err := engine.Do(ctx, Request{Kind: core.KindToken, Token: "king", K: 2})
	require.NoError(t, err)
	assert.Equal(t, "king", res[0].Token)

	res, err = engine.Do(ctx, Request{Kind: core.KindAnalogy, Positive: []string{"king", "woman"}, Negative: []string{"man"}, K: 1})
	require.NoError(t, err)
	assert.Equal(t, "queen", res[0].Token)

	res, err = engine.Do(ctx, Request{Kind: core.KindVector, Vector: []float32{0, 0, 0, 1}, K: 1})
	require.NoError(t, err)
	assert.Equal(t, "apple", res[0].Token)

	_, err = engine.Do(ctx, Request{Kind: "bogus", K: 1})
	assert.Equal(t, "invalid_argument", Reason(err))
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"token", Request{Kind: core.KindToken, Token: "a", K: 1}, true},
		{"token missing", Request{Kind: core.KindToken, K: 1}, false},
		{"vector missing", Request{Kind: core.KindVector, K: 1}, false},
		{"analogy empty", Request{Kind: core.KindAnalogy, K: 1}, false},
		{"analogy negative only", Request{Kind: core.KindAnalogy, Negative: []string{"a"}, K: 1}, true},
		{"zero k", Request{Kind: core.KindToken, Token: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
