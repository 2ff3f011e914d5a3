package ann

import (
	"runtime"

	"github.com/23skdu/wordscope/internal/core"
)

// Config controls index construction and traversal.
type Config struct {
	Backend core.IndexBackend
	Metric  core.DistanceMetric

	// NumTrees is the number of random projection trees in the forest.
	NumTrees int
	// MaxLeafSize is the largest number of IDs held by a leaf.
	MaxLeafSize int
	// Seed makes tree construction reproducible across runs.
	Seed int64
	// BuildWorkers bounds the number of trees built concurrently.
	BuildWorkers int
	// SearchK is the candidate budget per query. Zero means NumTrees*k.
	SearchK int

	// HNSWM is the maximum neighbours per node for the hnsw backend.
	HNSWM int
	// HNSWEfSearch is the hnsw candidate list size during search.
	HNSWEfSearch int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Backend:      core.BackendForest,
		Metric:       core.MetricAngular,
		NumTrees:     10,
		MaxLeafSize:  64,
		Seed:         42,
		BuildWorkers: runtime.NumCPU(),
		HNSWM:        16,
		HNSWEfSearch: 100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Metric == "" {
		c.Metric = def.Metric
	}
	if c.NumTrees <= 0 {
		c.NumTrees = def.NumTrees
	}
	if c.MaxLeafSize <= 0 {
		c.MaxLeafSize = def.MaxLeafSize
	}
	if c.BuildWorkers <= 0 {
		c.BuildWorkers = def.BuildWorkers
	}
	if c.HNSWM <= 0 {
		c.HNSWM = def.HNSWM
	}
	if c.HNSWEfSearch <= 0 {
		c.HNSWEfSearch = def.HNSWEfSearch
	}
	return c
}
