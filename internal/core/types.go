package core

// VectorID is the dense internal identifier of a vocabulary entry.
// IDs are assigned in [0, N) at index build time and never reused.
type VectorID uint32

// Neighbor is a candidate produced by an ANN traversal.
type Neighbor struct {
	ID       VectorID
	Distance float32
}

// Match is a single ranked query result.
type Match struct {
	Token string  `json:"token"`
	Score float32 `json:"score"`
}

// QueryKind identifies the entry point a result was produced by.
type QueryKind string

const (
	KindToken   QueryKind = "token"
	KindVector  QueryKind = "vector"
	KindAnalogy QueryKind = "analogy"
)
