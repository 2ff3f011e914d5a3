// Package embedding holds the immutable token to vector table and the loader
// that builds it from a whitespace-separated text file.
package embedding

import (
	"fmt"
	"math"

	"github.com/23skdu/wordscope/internal/core"
)

// Table maps tokens to fixed-dimension vectors. It is immutable once
// returned by a loader and safe for unlimited concurrent readers.
type Table struct {
	dim     int
	tokens  []string
	vectors [][]float32
	index   map[string]int
}

func newTable(dim int, capacity int) *Table {
	return &Table{
		dim:     dim,
		tokens:  make([]string, 0, capacity),
		vectors: make([][]float32, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

// add appends an entry. It reports false if the token is already present.
func (t *Table) add(token string, vec []float32) bool {
	if _, exists := t.index[token]; exists {
		return false
	}
	t.index[token] = len(t.tokens)
	t.tokens = append(t.tokens, token)
	t.vectors = append(t.vectors, vec)
	return true
}

// Dimension returns the vector dimensionality.
func (t *Table) Dimension() int { return t.dim }

// Len returns the number of tokens.
func (t *Table) Len() int { return len(t.tokens) }

// Contains reports whether token is in the table. Matching is exact.
func (t *Table) Contains(token string) bool {
	_, ok := t.index[token]
	return ok
}

// Get returns the vector stored for token. The returned slice is shared and
// must not be mutated.
func (t *Table) Get(token string) ([]float32, bool) {
	pos, ok := t.index[token]
	if !ok {
		return nil, false
	}
	return t.vectors[pos], true
}

// Tokens returns all tokens in load order.
func (t *Table) Tokens() []string {
	out := make([]string, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// ForEach visits entries in load order. Vectors must not be mutated.
func (t *Table) ForEach(fn func(pos int, token string, vec []float32)) {
	for i, token := range t.tokens {
		fn(i, token, t.vectors[i])
	}
}

// FromVectors builds a table from in-memory entries, in the given order.
// All vectors must share one dimension; duplicates keep the first entry.
func FromVectors(tokens []string, vectors [][]float32) (*Table, error) {
	if len(tokens) == 0 || len(vectors) == 0 {
		return nil, errEmpty("memory")
	}
	if len(tokens) != len(vectors) {
		return nil, errLengths(len(tokens), len(vectors))
	}
	dim := len(vectors[0])
	t := newTable(dim, len(tokens))
	for i, token := range tokens {
		if len(vectors[i]) != dim {
			return nil, errDim(dim, len(vectors[i]))
		}
		if !finite(vectors[i]) {
			return nil, core.NewInvalidArgumentError("vectors",
				fmt.Sprintf("vector for %q has non-finite components", token))
		}
		vec := make([]float32, dim)
		copy(vec, vectors[i])
		t.add(token, vec)
	}
	return t, nil
}

func finite(vec []float32) bool {
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
