package ann

import (
	"context"
	"math/rand"
	"sort"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/coder/hnsw"
)

// addBatch is how many nodes are inserted between cancellation checks.
const addBatch = 1024

// Graph answers queries through a hierarchical navigable small world graph
// keyed by internal ID. Results are re-scored with the configured metric so
// scores match the forest backend.
type Graph struct {
	dim      int
	metric   core.DistanceMetric
	distance distanceFunc
	vectors  [][]float32
	graph    *hnsw.Graph[core.VectorID]
}

func buildGraph(ctx context.Context, vectors [][]float32, dim int, cfg Config) (*Graph, error) {
	g := hnsw.NewGraph[core.VectorID]()
	g.M = cfg.HNSWM
	g.EfSearch = cfg.HNSWEfSearch
	g.Rng = rand.New(rand.NewSource(cfg.Seed))
	if cfg.Metric == core.MetricEuclidean {
		g.Distance = hnsw.EuclideanDistance
	} else {
		g.Distance = hnsw.CosineDistance
	}

	batch := make([]hnsw.Node[core.VectorID], 0, addBatch)
	for i, vec := range vectors {
		batch = append(batch, hnsw.MakeNode(core.VectorID(i), vec))
		if len(batch) == addBatch || i == len(vectors)-1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			g.Add(batch...)
			batch = batch[:0]
		}
	}

	return &Graph{
		dim:      dim,
		metric:   cfg.Metric,
		distance: distanceFor(cfg.Metric),
		vectors:  vectors,
		graph:    g,
	}, nil
}

// Dimension returns the vector dimensionality.
func (g *Graph) Dimension() int { return g.dim }

// Len returns the number of indexed vectors.
func (g *Graph) Len() int { return len(g.vectors) }

// Metric returns the distance metric.
func (g *Graph) Metric() core.DistanceMetric { return g.metric }

// Search returns up to k approximate nearest neighbours of vec.
func (g *Graph) Search(vec []float32, k int) ([]core.Neighbor, error) {
	if err := validateQuery(g.dim, vec, k); err != nil {
		return nil, err
	}
	query := prepare(g.metric, vec)

	nodes := g.graph.Search(query, k)
	out := make([]core.Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, core.Neighbor{ID: n.Key, Distance: g.distance(query, g.vectors[n.Key])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].ID < out[j].ID
		}
		return out[i].Distance < out[j].Distance
	})
	return out, nil
}
