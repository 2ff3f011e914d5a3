package ann

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// treeSeedStride spreads per-tree seeds so neighbouring trees do not share
// random streams.
const treeSeedStride = 7919

// Forest is a read-only random-hyperplane forest.
type Forest struct {
	dim      int
	metric   core.DistanceMetric
	distance distanceFunc
	searchK  int
	vectors  [][]float32
	trees    []*node
}

func buildForest(ctx context.Context, vectors [][]float32, dim int, cfg Config) (*Forest, error) {
	trees := make([]*node, cfg.NumTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BuildWorkers)
	for i := 0; i < cfg.NumTrees; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i)*treeSeedStride))
			ids := make([]core.VectorID, len(vectors))
			for j := range ids {
				ids[j] = core.VectorID(j)
			}
			trees[i] = buildNode(ids, vectors, cfg.MaxLeafSize, rng)
			metrics.IndexTreesBuilt.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{
		dim:      dim,
		metric:   cfg.Metric,
		distance: distanceFor(cfg.Metric),
		searchK:  cfg.SearchK,
		vectors:  vectors,
		trees:    trees,
	}, nil
}

// Dimension returns the vector dimensionality.
func (f *Forest) Dimension() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Forest) Len() int { return len(f.vectors) }

// Metric returns the distance metric.
func (f *Forest) Metric() core.DistanceMetric { return f.metric }

// Trees returns the number of trees in the forest.
func (f *Forest) Trees() int { return len(f.trees) }

// Search returns up to k approximate nearest neighbours of vec.
func (f *Forest) Search(vec []float32, k int) ([]core.Neighbor, error) {
	if err := validateQuery(f.dim, vec, k); err != nil {
		return nil, err
	}
	query := prepare(f.metric, vec)

	searchK := f.searchK
	if searchK <= 0 {
		searchK = len(f.trees) * k
	}

	candidates := f.collect(query, searchK)
	metrics.QueryCandidatesVisited.Observe(float64(candidates.GetCardinality()))

	scored := make([]core.Neighbor, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		id := core.VectorID(it.Next())
		scored = append(scored, core.Neighbor{ID: id, Distance: f.distance(query, f.vectors[id])})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance == scored[j].Distance {
			return scored[i].ID < scored[j].ID
		}
		return scored[i].Distance < scored[j].Distance
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// collect walks every tree best-first and returns the union of visited
// leaves once at least searchK candidates are held or the trees are exhausted.
func (f *Forest) collect(query []float32, searchK int) *roaring.Bitmap {
	seen := roaring.New()
	pq := make(nodeQueue, 0, len(f.trees)*2)
	for _, tree := range f.trees {
		pq = append(pq, nodeEntry{node: tree, priority: float32(math.Inf(1)), exact: true})
	}
	heap.Init(&pq)

	for pq.Len() > 0 && int(seen.GetCardinality()) < searchK {
		entry := heap.Pop(&pq).(nodeEntry)
		n := entry.node
		if n.leaf {
			for _, id := range n.ids {
				seen.Add(uint32(id))
			}
			continue
		}

		m := n.margin(query)
		near, far := n.left, n.right
		if m > 0 {
			near, far = n.right, n.left
		}
		abs := float32(math.Abs(float64(m)))
		heap.Push(&pq, nodeEntry{node: near, priority: minf(entry.priority, abs), exact: entry.exact})
		heap.Push(&pq, nodeEntry{node: far, priority: minf(entry.priority, -abs)})
	}
	return seen
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

type nodeEntry struct {
	node     *node
	priority float32
	// exact marks the path the query itself takes; it wins priority ties so
	// the query's own leaf is always visited first.
	exact bool
}

// nodeQueue is a max-heap on priority.
type nodeQueue []nodeEntry

func (h nodeQueue) Len() int { return len(h) }
func (h nodeQueue) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].exact && !h[j].exact
	}
	return h[i].priority > h[j].priority
}
func (h nodeQueue) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeQueue) Push(x interface{}) {
	*h = append(*h, x.(nodeEntry))
}

func (h *nodeQueue) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
