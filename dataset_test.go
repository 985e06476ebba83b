package nodulefed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/metric"
	"github.com/hupe1980/nodulefed/testutil"
	"github.com/hupe1980/nodulefed/volume"
)

// writeDataset creates 2 series with 9 class-0 and 3 class-1 candidates.
func writeDataset(t *testing.T) (string, []*volume.Volume) {
	t.Helper()
	dir := t.TempDir()
	vols := []*volume.Volume{
		testutil.Ramp("1.1", volume.Size{X: 16, Y: 16, Z: 3}),
		testutil.Ramp("1.2", volume.Size{X: 16, Y: 16, Z: 3}),
	}
	var recs []candidate.Record
	for n := range 12 {
		label := candidate.Class0
		if n%4 == 3 {
			label = candidate.Class1
		}
		v := vols[n%2]
		recs = append(recs, candidate.Record{SeriesID: v.SeriesID, World: testutil.WorldAt(v, 4+n/2, 6, n%3), Label: label})
	}
	require.NoError(t, testutil.WriteDataset(dir, vols, recs))
	return dir, vols
}

func twoClients() federation.Config {
	return federation.Config{Rows: []federation.Row{
		{ClientID: "h1", Class0Ratio: 0.5, Class1Ratio: 0.5},
		{ClientID: "h2", Class0Ratio: 0.5, Class1Ratio: 0.5},
	}}
}

func TestOpen(t *testing.T) {
	dir, _ := writeDataset(t)
	ds, err := Open(context.Background(), dir)
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, 12, ds.Pool().Len())
	assert.Equal(t, candidate.Totals{Class0: 9, Class1: 3}, ds.Pool().Counts())
	assert.Equal(t, []string{"1.1", "1.2"}, ds.SeriesIDs())
}

func TestOpen_WithoutSeriesList(t *testing.T) {
	dir, _ := writeDataset(t)
	require.NoError(t, os.Remove(filepath.Join(dir, CSVDir, SeriesIDsFile)))

	ds, err := Open(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1", "1.2"}, ds.SeriesIDs())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir, _ := writeDataset(t)
	bad := "seriesuid,coordX,coordY,coordZ,class\n1.1,1,2,3,1\n1.1,x,2,3,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CSVDir, CandidatesFile), []byte(bad), 0o644))
	_, err = Open(context.Background(), dir)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Row)
}

func TestAllocate_AutoFormat(t *testing.T) {
	dir, _ := writeDataset(t)
	ds, err := Open(context.Background(), dir, WithHalfSize(3), WithIDGenerator(allocator.CounterIDs()))
	require.NoError(t, err)

	t.Run("jpeg for small pools", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		report, err := ds.Allocate(context.Background(), store, twoClients(), 8)
		require.NoError(t, err)
		assert.Equal(t, format.JPEG, report.Format)
		// The first 8 candidates hold 6 of class 0 and 2 of class 1.
		assert.Equal(t, candidate.Totals{Class0: 6, Class1: 2}, report.Totals)
		assert.Equal(t, 8, report.Written())

		names, err := store.List(context.Background(), "client1/")
		require.NoError(t, err)
		assert.Equal(t, []string{"client1/0/000003.jpg", "client1/0/000004.jpg", "client1/0/000005.jpg", "client1/1/000001.jpg"}, names)
	})

	t.Run("npy when unlimited", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		report, err := ds.Allocate(context.Background(), store, twoClients(), Unlimited)
		require.NoError(t, err)
		assert.Equal(t, format.NPY, report.Format)

		data, err := blobstore.ReadAll(context.Background(), store, "client0/class0.npy")
		require.NoError(t, err)
		shape, _, err := format.DecodeNPY(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []int{4, 6, 6}, shape)
	})

	t.Run("empty prefix", func(t *testing.T) {
		_, err := ds.Allocate(context.Background(), blobstore.NewMemoryStore(), twoClients(), 0)
		assert.ErrorIs(t, err, ErrEmptyPool)
	})
}

func TestAllocate_ConfigErrors(t *testing.T) {
	dir, _ := writeDataset(t)
	ds, err := Open(context.Background(), dir, WithHalfSize(3))
	require.NoError(t, err)

	_, err = ds.Allocate(context.Background(), blobstore.NewMemoryStore(), federation.Config{}, Unlimited)
	assert.ErrorIs(t, err, ErrNoClients)

	cfg := federation.Config{Rows: []federation.Row{{ClientID: "x", Class0Ratio: -0.1}}}
	_, err = ds.Allocate(context.Background(), blobstore.NewMemoryStore(), cfg, Unlimited)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "class0Ratio", ce.Field)
}

func TestAllocateUnbalanced(t *testing.T) {
	dir, _ := writeDataset(t)
	var m metric.Basic
	ds, err := Open(context.Background(), dir, WithHalfSize(3), WithMetrics(&m), WithWorkers(4), WithVolumeCache(1<<20))
	require.NoError(t, err)
	defer ds.Close()

	store := blobstore.NewLocalStore(t.TempDir())
	report, err := ds.AllocateUnbalanced(context.Background(), store, twoClients(), federation.SamplingPolicy{Class0Limit: 4, Class1Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, format.JPEG, report.Format)
	assert.Equal(t, candidate.Totals{Class0: 4, Class1: 2}, report.Totals)
	assert.Equal(t, [candidate.NumClasses]int{2, 1}, report.Clients[0].Written)
	assert.Equal(t, [candidate.NumClasses]int{2, 1}, report.Clients[1].Written)
	assert.Equal(t, int64(6), m.Stats().Patches)

	got, err := allocator.ReadManifest(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, report.Written(), got.Written())
}

func TestPlan(t *testing.T) {
	dir, _ := writeDataset(t)
	ds, err := Open(context.Background(), dir, WithClampMode(federation.ClampLength))
	require.NoError(t, err)

	plan, err := ds.Plan(twoClients(), Unlimited)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, federation.Window{Start: 4, End: 8}, plan[1].Window(candidate.Class0))
	assert.Equal(t, federation.Window{Start: 1, End: 2}, plan[1].Window(candidate.Class1))

	_, err = ds.Plan(twoClients(), 0)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestHighlight(t *testing.T) {
	dir, vols := writeDataset(t)
	ds, err := Open(context.Background(), dir, WithHalfSize(2), WithHighlight(1, -5))
	require.NoError(t, err)

	v := vols[0]
	p, err := ds.Highlight(context.Background(), "1.1", testutil.WorldAt(v, 8, 8, 1))
	require.NoError(t, err)
	require.Equal(t, 16, p.Width)

	// Left band is column 5, rows [6,10).
	for y := 6; y < 10; y++ {
		assert.Equal(t, int16(-5), p.At(5, y))
	}
	assert.Equal(t, testutil.RampValue(8, 8, 1), p.At(8, 8))
	assert.Equal(t, testutil.RampValue(5, 5, 1), p.At(5, 5))

	_, err = ds.Highlight(context.Background(), "9.9", testutil.WorldAt(v, 8, 8, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew(t *testing.T) {
	v := testutil.Ramp("m", volume.Size{X: 8, Y: 8, Z: 1})
	pool := candidate.NewPool(testutil.Records("m", testutil.WorldAt(v, 4, 4, 0), candidate.Class1, 2), nil)
	ds := New(pool, volume.NewMemoryLoader(v), WithHalfSize(1))

	p, err := ds.Patch(context.Background(), pool.Candidates()[0])
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, testutil.RampValue(3, 3, 0), p.At(0, 0))
	assert.Equal(t, []string{"m"}, ds.SeriesIDs())
	assert.NotNil(t, ds.Loader())
	assert.NoError(t, ds.Close())
}
