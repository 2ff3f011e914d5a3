package ann

import (
	"math/rand"

	"github.com/23skdu/wordscope/internal/core"
)

type node struct {
	leaf       bool
	ids        []core.VectorID
	hyperplane []float32
	threshold  float32
	left       *node
	right      *node
}

// margin is positive when vec falls on the right of the split. Build and search
// must agree exactly, so both go through this function.
func (n *node) margin(vec []float32) float32 {
	return dot(n.hyperplane, vec) - n.threshold
}

func buildNode(ids []core.VectorID, vectors [][]float32, maxLeaf int, rng *rand.Rand) *node {
	if len(ids) <= maxLeaf {
		return newLeaf(ids)
	}

	// Sample two distinct points to define a hyperplane.
	aPos := rng.Intn(len(ids))
	bPos := rng.Intn(len(ids) - 1)
	if bPos >= aPos {
		bPos++
	}
	vecA := vectors[ids[aPos]]
	vecB := vectors[ids[bPos]]

	dim := len(vecA)
	normal := make([]float32, dim)
	mid := make([]float32, dim)
	for i := 0; i < dim; i++ {
		normal[i] = vecB[i] - vecA[i]
		mid[i] = (vecA[i] + vecB[i]) * 0.5
	}

	// Identical points: fall back to a random direction.
	if magnitude(normal) == 0 {
		for i := range normal {
			normal[i] = rng.Float32()*2 - 1
		}
	}
	normalise(normal)

	n := &node{hyperplane: normal, threshold: dot(normal, mid)}

	leftIDs := make([]core.VectorID, 0, len(ids)/2)
	rightIDs := make([]core.VectorID, 0, len(ids)/2)
	for _, id := range ids {
		if n.margin(vectors[id]) > 0 {
			rightIDs = append(rightIDs, id)
		} else {
			leftIDs = append(leftIDs, id)
		}
	}

	// Guard against degenerate splits.
	if len(leftIDs) == 0 || len(rightIDs) == 0 {
		return newLeaf(ids)
	}

	n.left = buildNode(leftIDs, vectors, maxLeaf, rng)
	n.right = buildNode(rightIDs, vectors, maxLeaf, rng)
	return n
}

func newLeaf(ids []core.VectorID) *node {
	leafIDs := make([]core.VectorID, len(ids))
	copy(leafIDs, ids)
	return &node{leaf: true, ids: leafIDs}
}
