package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/volume"
)

func TestRamp(t *testing.T) {
	v := Ramp("r", volume.Size{X: 4, Y: 3, Z: 2})
	assert.Equal(t, RampValue(3, 2, 1), v.At(3, 2, 1))
	assert.Equal(t, RampValue(0, 0, 0), v.At(0, 0, 0))

	idx, err := v.Index(WorldAt(v, 3, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.I)
	assert.Equal(t, 2, idx.J)
	assert.Equal(t, 1, idx.K)
}

func TestRNG_Deterministic(t *testing.T) {
	size := volume.Size{X: 8, Y: 8, Z: 2}
	a := NewRNG(4711).Volume("a", size)
	b := NewRNG(4711).Volume("a", size)
	assertSameVoxels(t, a, b)
	for k := range size.Z {
		for j := range size.Y {
			for i := range size.X {
				assert.GreaterOrEqual(t, a.At(i, j, k), int16(-1000))
				assert.LessOrEqual(t, a.At(i, j, k), int16(1000))
			}
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	first := rng.Intn(1 << 30)
	rng.Reset()
	assert.Equal(t, first, rng.Intn(1<<30))
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestCandidates(t *testing.T) {
	rng := NewRNG(1)
	v := Ramp("r", volume.Size{X: 8, Y: 8, Z: 2})
	recs := rng.Candidates([]*volume.Volume{v}, 200, 0.25)
	require.Len(t, recs, 200)

	pos := 0
	for _, r := range recs {
		assert.Equal(t, "r", r.SeriesID)
		if r.Label == candidate.Class1 {
			pos++
		}
	}
	assert.Greater(t, pos, 20)
	assert.Less(t, pos, 100)
}

func TestWriteDataset(t *testing.T) {
	dir := t.TempDir()
	v := Ramp("1.2.3", volume.Size{X: 4, Y: 4, Z: 2})
	recs := append(Records("1.2.3", WorldAt(v, 1, 1, 0), candidate.Class0, 2),
		Records("1.2.3", WorldAt(v, 2, 2, 1), candidate.Class1, 1)...)
	require.NoError(t, WriteDataset(dir, []*volume.Volume{v}, recs))

	pool, err := candidate.LoadFiles(
		filepath.Join(dir, "CSVFILES", "candidates.csv"),
		filepath.Join(dir, "CSVFILES", "annotations.csv"),
	)
	require.NoError(t, err)
	assert.Equal(t, candidate.Totals{Class0: 2, Class1: 1}, pool.Counts())
	assert.Len(t, pool.Annotations(), 1)

	ids, err := os.ReadFile(filepath.Join(dir, "CSVFILES", "seriesuids.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", strings.TrimSpace(string(ids)))

	loaded, err := volume.NewMetaImageLoader(filepath.Join(dir, "rawData")).Load(t.Context(), "1.2.3")
	require.NoError(t, err)
	assertSameVoxels(t, v, loaded)
}

func assertSameVoxels(t *testing.T, want, got *volume.Volume) {
	t.Helper()
	require.Equal(t, want.Size, got.Size)
	for k := range want.Size.Z {
		for j := range want.Size.Y {
			for i := range want.Size.X {
				require.Equal(t, want.At(i, j, k), got.At(i, j, k), "voxel (%d,%d,%d)", i, j, k)
			}
		}
	}
}

func TestConfigCSV(t *testing.T) {
	got := ConfigCSV(ConfigRow{"a", 0.5, 0.25}, ConfigRow{"b", 1, 0})
	assert.Equal(t, "clientId,class0Ratio,class1Ratio\na,0.5,0.25\nb,1,0\n", got)
}
