// Package projection reduces a token's neighbourhood to three dimensions for
// plotting.
package projection

import (
	"context"
	"math"
	"math/rand"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/rs/zerolog"
)

// Searcher is the query surface a projection needs.
type Searcher interface {
	ByToken(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error)
}

// Point is one projected token.
type Point struct {
	Token     string  `parquet:"token" json:"token"`
	X         float32 `parquet:"x" json:"x"`
	Y         float32 `parquet:"y" json:"y"`
	Z         float32 `parquet:"z" json:"z"`
	Highlight bool    `parquet:"highlight" json:"highlight"`
}

// Options controls how many tokens are projected.
type Options struct {
	Neighbors  int
	Sample     int
	Seed       int64
	Iterations int
	Logger     zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Neighbors:  15,
		Sample:     1000,
		Seed:       1,
		Iterations: 100,
		Logger:     zerolog.Nop(),
	}
}

// Neighborhood projects the nearest neighbours of token (the token itself
// included) together with a seeded random background sample. Neighbours are
// returned first with Highlight set.
func Neighborhood(ctx context.Context, engine Searcher, table *embedding.Table, token string, opts Options) ([]Point, error) {
	if opts.Neighbors <= 0 {
		return nil, core.NewInvalidArgumentError("neighbors", "must be positive")
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultOptions().Iterations
	}

	matches, err := engine.ByToken(ctx, token, opts.Neighbors, false)
	if err != nil {
		return nil, err
	}

	chosen := make(map[string]bool, len(matches)+opts.Sample)
	tokens := make([]string, 0, len(matches)+opts.Sample)
	for _, m := range matches {
		chosen[m.Token] = true
		tokens = append(tokens, m.Token)
	}
	highlighted := len(tokens)

	if opts.Sample > 0 {
		all := table.Tokens()
		rng := rand.New(rand.NewSource(opts.Seed))
		added := 0
		for _, i := range rng.Perm(len(all)) {
			if added == opts.Sample {
				break
			}
			if chosen[all[i]] {
				continue
			}
			chosen[all[i]] = true
			tokens = append(tokens, all[i])
			added++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([][]float64, len(tokens))
	for i, tok := range tokens {
		vec, ok := table.Get(tok)
		if !ok {
			return nil, core.NewUnknownTokenError(tok)
		}
		rows[i] = normalised(vec)
	}

	coords := pca3(rows, opts.Iterations, opts.Seed)
	points := make([]Point, len(tokens))
	for i, tok := range tokens {
		points[i] = Point{
			Token:     tok,
			X:         float32(coords[i][0]),
			Y:         float32(coords[i][1]),
			Z:         float32(coords[i][2]),
			Highlight: i < highlighted,
		}
	}

	opts.Logger.Debug().
		Str("token", token).
		Int("neighbors", highlighted).
		Int("background", len(tokens)-highlighted).
		Msg("Projected neighbourhood")
	return points, nil
}

func normalised(vec []float32) []float64 {
	out := make([]float64, len(vec))
	var norm float64
	for i, v := range vec {
		out[i] = float64(v)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

// pca3 projects rows onto their first three principal components, found by
// power iteration on the implicit covariance with Gram-Schmidt deflation.
// Components the data cannot support stay zero.
func pca3(rows [][]float64, iterations int, seed int64) [][3]float64 {
	out := make([][3]float64, len(rows))
	if len(rows) == 0 {
		return out
	}
	dim := len(rows[0])

	mean := make([]float64, dim)
	for _, r := range rows {
		for j, v := range r {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}
	centred := make([][]float64, len(rows))
	for i, r := range rows {
		c := make([]float64, dim)
		for j, v := range r {
			c[j] = v - mean[j]
		}
		centred[i] = c
	}

	rng := rand.New(rand.NewSource(seed))
	var components [][]float64
	for c := 0; c < 3 && c < dim; c++ {
		v := make([]float64, dim)
		for j := range v {
			v[j] = rng.Float64() - 0.5
		}
		orthogonalise(v, components)
		if !unit(v) {
			break
		}
		for it := 0; it < iterations; it++ {
			next := covarianceTimes(centred, v)
			orthogonalise(next, components)
			if !unit(next) {
				v = nil
				break
			}
			v = next
		}
		if v == nil {
			break
		}
		components = append(components, v)
	}

	for i, r := range centred {
		for c, comp := range components {
			out[i][c] = dot64(r, comp)
		}
	}
	return out
}

// covarianceTimes computes X^T (X v) without materialising X^T X.
func covarianceTimes(x [][]float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for _, r := range x {
		p := dot64(r, v)
		for j, val := range r {
			out[j] += p * val
		}
	}
	return out
}

func orthogonalise(v []float64, basis [][]float64) {
	for _, b := range basis {
		p := dot64(v, b)
		for j := range v {
			v[j] -= p * b[j]
		}
	}
}

func unit(v []float64) bool {
	n := math.Sqrt(dot64(v, v))
	if n < 1e-12 {
		return false
	}
	for j := range v {
		v[j] /= n
	}
	return true
}

func dot64(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
