package patch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/volume"
)

// grid builds a w x h x d volume at the origin with unit spacing, voxel
// (i,j,k) holding i + 100*j + 10000*k.
func grid(t *testing.T, w, h, d int) *volume.Volume {
	t.Helper()
	vox := make([]int16, w*h*d)
	for k := 0; k < d; k++ {
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				vox[(k*h+j)*w+i] = int16(i + 100*j + 10000*k)
			}
		}
	}
	v, err := volume.New("s1", coord.WorldCoordinate{}, coord.Spacing{X: 1, Y: 1, Z: 1}, volume.Size{X: w, Y: h, Z: d}, vox)
	require.NoError(t, err)
	return v
}

func world(i, j, k float64) coord.WorldCoordinate {
	return coord.WorldCoordinate{X: i + 0.5, Y: j + 0.5, Z: k + 0.5}
}

func TestExtract(t *testing.T) {
	v := grid(t, 20, 16, 3)

	t.Run("interior", func(t *testing.T) {
		p, err := Extract(v, world(10, 8, 1), 3)
		require.NoError(t, err)
		assert.Equal(t, coord.VolumeIndexCoordinate{I: 10, J: 8, K: 1}, p.Center)
		assert.Equal(t, 6, p.Width)
		assert.Equal(t, 6, p.Height)
		assert.Equal(t, volume.Rect{X0: 7, Y0: 5, X1: 13, Y1: 11}, p.Box)
		assert.Equal(t, int16(7+500+10000), p.At(0, 0))
		assert.Equal(t, int16(12+1000+10000), p.At(5, 5))
		assert.Equal(t, "s1", p.SeriesID)
	})

	t.Run("corner is clipped not recentred", func(t *testing.T) {
		p, err := Extract(v, world(0, 0, 0), 3)
		require.NoError(t, err)
		assert.Equal(t, 3, p.Width)
		assert.Equal(t, 3, p.Height)
		assert.Equal(t, int16(0), p.At(0, 0))
	})

	t.Run("far corner", func(t *testing.T) {
		p, err := Extract(v, world(19, 15, 2), 4)
		require.NoError(t, err)
		assert.Equal(t, volume.Rect{X0: 15, Y0: 11, X1: 20, Y1: 16}, p.Box)
		assert.Equal(t, 5, p.Width)
		assert.Equal(t, 5, p.Height)
	})

	t.Run("outside plane is empty", func(t *testing.T) {
		p, err := Extract(v, world(40, 8, 0), 3)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Width)
		assert.Equal(t, 6, p.Height)
	})

	t.Run("depth out of range", func(t *testing.T) {
		_, err := Extract(v, world(1, 1, 3), 3)
		var de *coord.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "index.k", de.Field)
	})

	t.Run("negative half size", func(t *testing.T) {
		_, err := Extract(v, world(1, 1, 1), -1)
		assert.ErrorIs(t, err, ErrNegativeSize)
	})

	t.Run("world is mirrored by abs", func(t *testing.T) {
		p, err := Extract(v, coord.WorldCoordinate{X: -4.5, Y: -4.5, Z: -0.5}, 1)
		require.NoError(t, err)
		assert.Equal(t, coord.VolumeIndexCoordinate{I: 4, J: 4, K: 0}, p.Center)
	})
}

func TestHighlight(t *testing.T) {
	v := grid(t, 20, 20, 1)
	before, err := v.Slice(0)
	require.NoError(t, err)
	snapshot := before.Clone()

	out, err := Highlight(v, world(10, 10, 0), 3, 2, DefaultMarker)
	require.NoError(t, err)

	// Left band: cols [5,7) over rows [7,13).
	assert.Equal(t, DefaultMarker, out.At(5, 7))
	assert.Equal(t, DefaultMarker, out.At(6, 12))
	// Right band: cols [13,15).
	assert.Equal(t, DefaultMarker, out.At(13, 10))
	assert.Equal(t, DefaultMarker, out.At(14, 10))
	// Top band: rows [5,7) over cols [7,13).
	assert.Equal(t, DefaultMarker, out.At(7, 5))
	// Bottom band: rows [13,15).
	assert.Equal(t, DefaultMarker, out.At(12, 14))

	// Box interior and frame corners are untouched.
	assert.Equal(t, snapshot.At(10, 10), out.At(10, 10))
	assert.Equal(t, snapshot.At(5, 5), out.At(5, 5))
	assert.Equal(t, snapshot.At(4, 10), out.At(4, 10))

	after, err := v.Slice(0)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Pix, after.Clone().Pix)
}

func TestHighlight_Edge(t *testing.T) {
	v := grid(t, 10, 10, 1)
	out, err := Highlight(v, world(1, 1, 0), 3, 2, -7)
	require.NoError(t, err)

	// Left and top bands fall off the image; right band cols [4,6) rows [0,4).
	marked := 0
	for _, px := range out.Pix {
		if px == -7 {
			marked++
		}
	}
	// right 2x4 + bottom 4x2 (cols [0,4), rows [4,6))
	assert.Equal(t, 16, marked)
	assert.Equal(t, int16(-7), out.At(4, 0))
	assert.Equal(t, int16(-7), out.At(0, 5))

	_, err = Highlight(v, world(1, 1, 0), 3, -1, -7)
	assert.ErrorIs(t, err, ErrNegativeSize)
}

func TestExtractor(t *testing.T) {
	v := grid(t, 8, 8, 2)
	e := NewExtractor(volume.NewMemoryLoader(v), 2)
	assert.Equal(t, 2, e.HalfSize())

	p, err := e.Extract(context.Background(), "s1", world(4, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Width)

	_, err = e.Extract(context.Background(), "nope", world(4, 4, 1))
	assert.ErrorIs(t, err, volume.ErrNotFound)

	hl, err := e.Highlight(context.Background(), "s1", world(4, 4, 1), DefaultBorder, DefaultMarker)
	require.NoError(t, err)
	assert.Equal(t, 64, len(hl.Pix))
}
