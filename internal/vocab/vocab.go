// Package vocab maps dense internal IDs to tokens and back.
package vocab

import (
	"fmt"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
)

// Map is the bijection between internal IDs and tokens. It is built together
// with an ANN index and must only be used with that index.
type Map struct {
	tokens []string
	ids    map[string]core.VectorID
}

// FromTable assigns IDs 0..N-1 in table iteration order.
func FromTable(table *embedding.Table) *Map {
	m := &Map{
		tokens: make([]string, 0, table.Len()),
		ids:    make(map[string]core.VectorID, table.Len()),
	}
	table.ForEach(func(pos int, token string, _ []float32) {
		m.ids[token] = core.VectorID(pos)
		m.tokens = append(m.tokens, token)
	})
	return m
}

// Len returns the number of mapped tokens.
func (m *Map) Len() int { return len(m.tokens) }

// Token resolves an ID. It panics on an ID outside [0, Len()) since such an ID
// can only come from a mismatched index.
func (m *Map) Token(id core.VectorID) string {
	if int(id) >= len(m.tokens) {
		panic(fmt.Sprintf("vocab: id %d out of range [0, %d)", id, len(m.tokens)))
	}
	return m.tokens[id]
}

// ID resolves a token.
func (m *Map) ID(token string) (core.VectorID, bool) {
	id, ok := m.ids[token]
	return id, ok
}
