package projection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/23skdu/wordscope/internal/ann"
	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/23skdu/wordscope/internal/query"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, n, dim int) (*query.Engine, *embedding.Table) {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	tokens := make([]string, n)
	vectors := make([][]float32, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%03d", i)
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		vectors[i] = vec
	}
	table, err := embedding.FromVectors(tokens, vectors)
	require.NoError(t, err)
	pair, err := ann.Build(context.Background(), table, ann.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	engine, err := query.NewEngine(table, pair)
	require.NoError(t, err)
	return engine, table
}

func TestNeighborhoodComposition(t *testing.T) {
	engine, table := newEngine(t, 200, 10)
	opts := DefaultOptions()
	opts.Sample = 50

	points, err := Neighborhood(context.Background(), engine, table, "t007", opts)
	require.NoError(t, err)
	require.Len(t, points, 15+50)

	assert.Equal(t, "t007", points[0].Token)
	seen := make(map[string]bool)
	for i, p := range points {
		assert.False(t, seen[p.Token], "duplicate %s", p.Token)
		seen[p.Token] = true
		assert.Equal(t, i < 15, p.Highlight, "point %d", i)
		assert.False(t, math.IsNaN(float64(p.X)))
	}
}

func TestNeighborhoodIsDeterministic(t *testing.T) {
	engine, table := newEngine(t, 120, 8)
	opts := DefaultOptions()
	opts.Sample = 30

	a, err := Neighborhood(context.Background(), engine, table, "t001", opts)
	require.NoError(t, err)
	b, err := Neighborhood(context.Background(), engine, table, "t001", opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNeighborhoodSampleLargerThanVocab(t *testing.T) {
	engine, table := newEngine(t, 40, 6)
	points, err := Neighborhood(context.Background(), engine, table, "t000", DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, points, 40)
}

func TestNeighborhoodUnknownToken(t *testing.T) {
	engine, table := newEngine(t, 20, 4)
	_, err := Neighborhood(context.Background(), engine, table, "nope", DefaultOptions())
	var ut *core.ErrUnknownToken
	assert.True(t, errors.As(err, &ut))
}

func TestPCARecoversDominantAxis(t *testing.T) {
	rows := make([][]float64, 0, 21)
	for i := -10; i <= 10; i++ {
		rows = append(rows, []float64{float64(i), 0.01 * float64(i%3), 0, 0})
	}
	coords := pca3(rows, 200, 3)

	// Spread along the first component dominates the rest.
	var v0, v1 float64
	for _, c := range coords {
		v0 += c[0] * c[0]
		v1 += c[1] * c[1]
	}
	assert.Greater(t, v0, 100*v1)
	assert.InDelta(t, 10, math.Abs(coords[20][0]), 0.01)
}

func TestPCALowDimension(t *testing.T) {
	coords := pca3([][]float64{{1, 0}, {0, 1}, {-1, 0}}, 50, 1)
	require.Len(t, coords, 3)
	for _, c := range coords {
		assert.Equal(t, 0.0, c[2])
	}
}

func TestParquetRoundTrip(t *testing.T) {
	points := []Point{
		{Token: "cat", X: 1, Y: 2, Z: 3, Highlight: true},
		{Token: "dog", X: -1, Y: 0.5, Z: 0},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, points))

	got, err := ReadParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestReadParquetRejectsGarbage(t *testing.T) {
	data := []byte("not a parquet file")
	_, err := ReadParquet(bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}
