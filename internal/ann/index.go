package ann

import (
	"context"
	"math"
	"time"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/23skdu/wordscope/internal/vocab"
	"github.com/rs/zerolog"
)

// Index answers approximate k-nearest-neighbour queries. Implementations are
// immutable after construction and safe for concurrent use.
type Index interface {
	Dimension() int
	Len() int
	Metric() core.DistanceMetric
	// Search returns up to k neighbours ordered by ascending distance.
	Search(vec []float32, k int) ([]core.Neighbor, error)
}

// Pair is an index together with the vocabulary map its IDs refer to.
type Pair struct {
	Index   Index
	Vocab   *vocab.Map
	Backend core.IndexBackend
}

// Build assigns IDs in table order and constructs the configured backend.
// The pair is only returned once construction has fully completed.
func Build(ctx context.Context, table *embedding.Table, cfg Config, logger zerolog.Logger) (*Pair, error) {
	cfg = cfg.withDefaults()
	if table == nil || table.Len() == 0 {
		return nil, &core.ErrEmptyIndex{Backend: cfg.Backend}
	}

	start := time.Now()
	vm := vocab.FromTable(table)

	vectors := make([][]float32, 0, table.Len())
	table.ForEach(func(_ int, _ string, vec []float32) {
		vectors = append(vectors, prepare(cfg.Metric, vec))
	})

	logger.Info().
		Str("backend", string(cfg.Backend)).
		Str("metric", string(cfg.Metric)).
		Int("vectors", len(vectors)).
		Int("dimension", table.Dimension()).
		Int("trees", cfg.NumTrees).
		Int64("seed", cfg.Seed).
		Msg("Building ANN index")

	var (
		idx Index
		err error
	)
	switch cfg.Backend {
	case core.BackendHNSW:
		idx, err = buildGraph(ctx, vectors, table.Dimension(), cfg)
	default:
		idx, err = buildForest(ctx, vectors, table.Dimension(), cfg)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.IndexBuildDurationSeconds.WithLabelValues(string(cfg.Backend)).Observe(elapsed.Seconds())
	logger.Info().
		Str("backend", string(cfg.Backend)).
		Dur("elapsed", elapsed).
		Msg("ANN index ready")

	return &Pair{Index: idx, Vocab: vm, Backend: cfg.Backend}, nil
}

func validateQuery(dim int, vec []float32, k int) error {
	if len(vec) != dim {
		return core.NewDimensionMismatchError(dim, len(vec))
	}
	if k <= 0 {
		return core.NewInvalidArgumentError("k", "must be positive")
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return core.NewInvalidArgumentError("vector", "components must be finite")
		}
	}
	return nil
}
