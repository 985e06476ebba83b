package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/nodulefed/internal/resource"
)

// LRU is a byte-bounded least-recently-used cache. Values are sized once on
// insertion by the size function and must be treated as immutable.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[K]*list.Element
	evictList *list.List
	sizeOf    func(V) int64
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// NewLRU creates a cache holding at most capacity bytes. If rc is non-nil,
// memory is also reserved there; a refused reservation skips caching.
func NewLRU[K comparable, V any](capacity int64, sizeOf func(V) int64, rc *resource.Controller) *LRU[K, V] {
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		sizeOf:    sizeOf,
		rc:        rc,
	}
}

// Get returns a cached value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set caches value under key. Values larger than the capacity are not cached.
func (c *LRU[K, V]) Set(key K, value V) {
	itemSize := c.sizeOf(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	if itemSize > c.capacity {
		return
	}

	for c.size+itemSize > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}

	if c.rc != nil && !c.rc.TryAcquireMemory(itemSize) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value, size: itemSize})
	c.size += itemSize
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the bytes held by the cache.
func (c *LRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counts.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every entry and releases its memory reservation.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

func (c *LRU[K, V]) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	ent := el.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.size -= ent.size
	if c.rc != nil {
		c.rc.ReleaseMemory(ent.size)
	}
}
