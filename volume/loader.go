package volume

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/nodulefed/internal/cache"
	"github.com/hupe1980/nodulefed/internal/resource"
)

// Loader resolves a series id to its volume.
type Loader interface {
	Load(ctx context.Context, seriesID string) (*Volume, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, seriesID string) (*Volume, error)

func (f LoaderFunc) Load(ctx context.Context, seriesID string) (*Volume, error) {
	return f(ctx, seriesID)
}

// MemoryLoader serves volumes registered with Add.
type MemoryLoader struct {
	mu      sync.RWMutex
	volumes map[string]*Volume
}

// NewMemoryLoader returns a loader holding vs.
func NewMemoryLoader(vs ...*Volume) *MemoryLoader {
	l := &MemoryLoader{volumes: make(map[string]*Volume, len(vs))}
	for _, v := range vs {
		l.Add(v)
	}
	return l
}

// Add registers v under its series id, replacing any previous volume.
func (l *MemoryLoader) Add(v *Volume) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volumes[v.SeriesID] = v
}

func (l *MemoryLoader) Load(ctx context.Context, seriesID string) (*Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.volumes[seriesID]
	if !ok {
		return nil, fmt.Errorf("volume %q: %w", seriesID, ErrNotFound)
	}
	return v, nil
}

// CachingLoader keeps recently loaded volumes in a byte-bounded LRU.
// Concurrent misses for one series share a single inner load.
type CachingLoader struct {
	inner Loader
	lru   *cache.LRU[string, *Volume]
	group singleflight.Group
}

// NewCachingLoader caches up to capacity bytes of volumes from inner. A
// non-nil rc additionally accounts cached bytes against its memory limit.
func NewCachingLoader(inner Loader, capacity int64, rc *resource.Controller) *CachingLoader {
	return &CachingLoader{
		inner: inner,
		lru:   cache.NewLRU[string, *Volume](capacity, (*Volume).Bytes, rc),
	}
}

func (c *CachingLoader) Load(ctx context.Context, seriesID string) (*Volume, error) {
	if v, ok := c.lru.Get(seriesID); ok {
		return v, nil
	}

	// The shared load outlives any single caller; each waiter still stops
	// on its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(seriesID, func() (any, error) {
		v, err := c.inner.Load(loadCtx, seriesID)
		if err != nil {
			return nil, err
		}
		c.lru.Set(seriesID, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Volume), nil
	}
}

// Stats returns cache hits and misses.
func (c *CachingLoader) Stats() (hits, misses int64) {
	return c.lru.Stats()
}

// Len returns the number of cached volumes.
func (c *CachingLoader) Len() int { return c.lru.Len() }

// Purge drops every cached volume and releases its memory reservation.
func (c *CachingLoader) Purge() { c.lru.Purge() }
