package flight

// chunkStrategy sizes result batches: small first so clients see rows
// quickly, then growing geometrically up to maxSize.
type chunkStrategy struct {
	minSize      int
	maxSize      int
	growthFactor float64
	current      int
}

func newChunkStrategy(minSize, maxSize int, growthFactor float64) *chunkStrategy {
	if minSize < 1 {
		minSize = 1
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return &chunkStrategy{
		minSize:      minSize,
		maxSize:      maxSize,
		growthFactor: growthFactor,
		current:      minSize,
	}
}

// next returns the size of the upcoming chunk and advances the strategy.
func (s *chunkStrategy) next() int {
	size := s.current
	grown := int(float64(s.current) * s.growthFactor)
	if grown <= s.current {
		grown = s.current + 1
	}
	if grown > s.maxSize {
		grown = s.maxSize
	}
	s.current = grown
	return size
}

// spans splits n rows into [start, end) ranges following the strategy.
func (s *chunkStrategy) spans(n int) [][2]int {
	var out [][2]int
	for start := 0; start < n; {
		end := start + s.next()
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}
