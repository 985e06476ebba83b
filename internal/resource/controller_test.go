package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})
	assert.Equal(t, 2, c.Workers())

	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireWorker(t.Context()))
	assert.False(t, c.TryAcquireWorker())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireWorker(ctx))

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestController_DefaultsToOneWorker(t *testing.T) {
	assert.Equal(t, 1, NewController(Config{}).Workers())
}

func TestController_NilIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(1<<40))
	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireIO(t.Context(), 1<<30))
	assert.True(t, c.TryAcquireWorker())
	assert.True(t, c.TryAcquireIO(1<<30))
	assert.Equal(t, 1, c.Workers())
	c.ReleaseWorker()
	c.ReleaseMemory(10)
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Exceeds the burst; must be split rather than rejected.
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20+10))
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)
	n, err := w.Write([]byte("patch bytes"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "patch bytes", buf.String())
}
