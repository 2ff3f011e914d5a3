package query

import (
	"github.com/23skdu/wordscope/internal/core"
)

// Request is the transport-neutral form of a similarity query. It is what
// Flight tickets decode into and what the result cache hashes.
type Request struct {
	Kind        core.QueryKind `json:"kind"`
	Token       string         `json:"token,omitempty"`
	Vector      []float32      `json:"vector,omitempty"`
	K           int            `json:"k"`
	ExcludeSelf bool           `json:"exclude_self,omitempty"`
	Positive    []string       `json:"positive,omitempty"`
	Negative    []string       `json:"negative,omitempty"`
}

// Validate checks the fields required by each kind.
func (r *Request) Validate() error {
	if r.K <= 0 {
		return core.NewInvalidArgumentError("k", "must be positive")
	}
	switch r.Kind {
	case core.KindToken:
		if r.Token == "" {
			return core.NewInvalidArgumentError("token", "required for token queries")
		}
	case core.KindVector:
		if len(r.Vector) == 0 {
			return core.NewInvalidArgumentError("vector", "required for vector queries")
		}
	case core.KindAnalogy:
		if len(r.Positive) == 0 && len(r.Negative) == 0 {
			return core.NewInvalidArgumentError("positive", "analogy needs at least one term")
		}
	default:
		return core.NewInvalidArgumentError("kind", "unknown query kind "+string(r.Kind))
	}
	return nil
}

// Response is the JSON form of a query result.
type Response struct {
	Matches []core.Match `json:"matches"`
}
