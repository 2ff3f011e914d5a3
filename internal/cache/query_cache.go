package cache

import (
	"container/list"
	"sync"

	"github.com/23skdu/wordscope/internal/metrics"
)

type cacheItem[T any] struct {
	key   uint64
	value T
}

// QueryCache is a size-bounded LRU map. A capacity of zero or less means
// unbounded. Entries never expire; the index they describe is immutable.
type QueryCache[T any] struct {
	mu       sync.Mutex
	capacity int
	items    map[uint64]*list.Element
	lru      *list.List
}

func NewQueryCache[T any](capacity int) *QueryCache[T] {
	return &QueryCache[T]{
		capacity: capacity,
		items:    make(map[uint64]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached value and marks it most recently used.
func (c *QueryCache[T]) Get(key uint64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).value, true
}

func (c *QueryCache[T]) Put(key uint64, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheItem[T]).value = value
		return
	}

	elem := c.lru.PushFront(&cacheItem[T]{key: key, value: value})
	c.items[key] = elem

	if c.capacity > 0 && c.lru.Len() > c.capacity {
		c.evictOldest()
	}
	metrics.QueryCacheSize.Set(float64(c.lru.Len()))
}

func (c *QueryCache[T]) evictOldest() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.lru.Remove(elem)
	delete(c.items, elem.Value.(*cacheItem[T]).key)
	metrics.QueryCacheEvictionsTotal.Inc()
}

// Len returns the number of cached entries.
func (c *QueryCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
