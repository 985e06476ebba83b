package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits for an allocation run.
type Config struct {
	// MemoryLimitBytes caps memory held by cached volumes.
	// If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxWorkers is the number of patches extracted and written concurrently.
	// If 0, defaults to 1, which reproduces the sequential reference behaviour.
	MaxWorkers int64

	// IOLimitBytesPerSec throttles bytes written to the output sink.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller governs memory, worker slots and write throughput.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workers *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves bytes without blocking.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory is AcquireMemory reporting success as a bool.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	return c.AcquireMemory(bytes) == nil
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured limit (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// Workers returns the number of concurrent extraction slots.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker blocks until an extraction slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves an extraction slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker frees a slot taken by AcquireWorker or TryAcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the write budget allows bytes.
// Requests larger than the burst are split into burst-sized waits.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO takes write budget without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
