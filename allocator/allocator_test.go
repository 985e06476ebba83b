package allocator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/codec"
	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/internal/fs"
	"github.com/hupe1980/nodulefed/internal/resource"
	"github.com/hupe1980/nodulefed/metric"
	"github.com/hupe1980/nodulefed/patch"
	"github.com/hupe1980/nodulefed/testutil"
	"github.com/hupe1980/nodulefed/volume"
)

const half = 2

type fixture struct {
	vol       *volume.Volume
	pool      *candidate.Pool
	extractor *patch.Extractor
	// centres[l][n] is the voxel of the n-th candidate of class l.
	centres [candidate.NumClasses][]coord.VolumeIndexCoordinate
}

// newFixture builds 8 class-0 and 4 class-1 candidates on one ramp volume.
func newFixture() *fixture {
	f := &fixture{vol: testutil.Ramp("s1", volume.Size{X: 16, Y: 16, Z: 4})}
	var recs []candidate.Record
	for n := range 8 {
		c := coord.VolumeIndexCoordinate{I: 4 + n, J: 5, K: n % 4}
		f.centres[candidate.Class0] = append(f.centres[candidate.Class0], c)
		recs = append(recs, candidate.Record{SeriesID: "s1", World: testutil.WorldAt(f.vol, c.I, c.J, c.K), Label: candidate.Class0})
		if n < 4 {
			c := coord.VolumeIndexCoordinate{I: 8, J: 8 + n, K: 1}
			f.centres[candidate.Class1] = append(f.centres[candidate.Class1], c)
			recs = append(recs, candidate.Record{SeriesID: "s1", World: testutil.WorldAt(f.vol, c.I, c.J, c.K), Label: candidate.Class1})
		}
	}
	f.pool = candidate.NewPool(recs, nil)
	f.extractor = patch.NewExtractor(volume.NewMemoryLoader(f.vol), half)
	return f
}

func threeClients() federation.Config {
	return federation.Config{Rows: []federation.Row{
		{ClientID: "a", Class0Ratio: 0.5, Class1Ratio: 0.5},
		{ClientID: "b", Class0Ratio: 0.25, Class1Ratio: 0.25},
		{ClientID: "c", Class0Ratio: 0.25, Class1Ratio: 0.25},
	}}
}

func TestRun_NIfTI(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	var m metric.Basic

	a := New(store, f.extractor, WithIDGenerator(CounterIDs()), WithMetrics(&m),
		WithResourceController(resource.NewController(resource.Config{MaxWorkers: 4})))
	report, err := a.Run(context.Background(), f.pool, threeClients())
	require.NoError(t, err)

	require.Len(t, report.Clients, 3)
	assert.Equal(t, 12, report.Written())
	assert.Equal(t, federation.Window{Start: 0, End: 4}, report.Clients[0].Window(candidate.Class0))
	assert.Equal(t, federation.Window{Start: 4, End: 6}, report.Clients[1].Window(candidate.Class0))
	assert.Equal(t, federation.Window{Start: 3, End: 4}, report.Clients[2].Window(candidate.Class1))
	assert.Equal(t, [candidate.NumClasses]int{2, 1}, report.Clients[2].Written)
	assert.Zero(t, report.Audit.Revisits())

	// Every patch lands in its client and class directory and holds the
	// ramp values around its centre.
	for _, cr := range report.Clients {
		for _, file := range cr.Files {
			assert.Equal(t, FilePath(cr.Client, file.Class, CounterIDs().NextID(0, 0, file.Index), format.NIfTI), file.Path)
			data, err := blobstore.ReadAll(context.Background(), store, file.Path)
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), file.Bytes)

			p, err := format.DecodeNIfTI(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, 2*half, p.Width)
			require.Equal(t, 2*half, p.Height)
			c := f.centres[file.Class][file.Index]
			for y := range p.Height {
				for x := range p.Width {
					assert.Equal(t, testutil.RampValue(c.I-half+x, c.J-half+y, c.K), p.At(x, y))
				}
			}
		}
	}

	s := m.Stats()
	assert.Equal(t, int64(1), s.Resets)
	assert.Equal(t, int64(12), s.Patches)
	assert.Equal(t, int64(3), s.Clients)
	assert.Zero(t, s.PatchErrors)
}

func TestRun_Manifest(t *testing.T) {
	f := newFixture()
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			report, err := New(store, f.extractor, WithCodec(c)).Run(context.Background(), f.pool, threeClients())
			require.NoError(t, err)

			got, err := ReadManifest(context.Background(), store)
			require.NoError(t, err)
			assert.Equal(t, c.Name(), got.Codec)
			assert.Equal(t, report.Written(), got.Written())
			assert.Equal(t, report.Clients[1].Files, got.Clients[1].Files)
			assert.Equal(t, report.Clients[1].Assignment, got.Clients[1].Assignment)
			assert.Equal(t, report.Totals, got.Totals)
		})
	}
}

func TestRun_WithoutManifest(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	_, err := New(store, f.extractor, WithManifest(false)).Run(context.Background(), f.pool, threeClients())
	require.NoError(t, err)
	_, err = ReadManifest(context.Background(), store)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRun_ResetRemovesStaleOutput(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "client7", "0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client7", "0", "old.nii"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	cfg := federation.Config{Rows: []federation.Row{{ClientID: "a", Class0Ratio: 0, Class1Ratio: 0}}}
	_, err := New(blobstore.NewLocalStore(dir), f.extractor).Run(context.Background(), f.pool, cfg)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"client0", ManifestName}, names)
	for _, l := range candidate.Labels {
		assert.DirExists(t, filepath.Join(dir, ClassDir(0, l)))
	}
}

func TestRun_InvalidConfigLeavesOutputAlone(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "keep", []byte("x")))

	cfg := federation.Config{Rows: []federation.Row{{ClientID: "a", Class0Ratio: 1.5}}}
	_, err := New(store, f.extractor).Run(context.Background(), f.pool, cfg)

	var ce *federation.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Row)
	assert.Equal(t, 1, store.Len())

	_, err = New(store, f.extractor).Run(context.Background(), f.pool, federation.Config{})
	assert.ErrorIs(t, err, federation.ErrNoClients)
}

func TestRun_ExhaustionClamp(t *testing.T) {
	f := newFixture()
	cfg := federation.Config{Rows: []federation.Row{
		{ClientID: "a", Class0Ratio: 1, Class1Ratio: 0},
		{ClientID: "b", Class0Ratio: 1, Class1Ratio: 0},
	}}

	t.Run("last-index", func(t *testing.T) {
		report, err := New(blobstore.NewMemoryStore(), f.extractor).Run(context.Background(), f.pool, cfg)
		require.NoError(t, err)
		assert.Equal(t, federation.Window{Start: 7, End: 8}, report.Clients[1].Window(candidate.Class0))
		assert.Equal(t, 1, report.Clients[1].Written[candidate.Class0])
		assert.Equal(t, uint64(1), report.Audit[candidate.Class0].Revisited)
		assert.Equal(t, []candidate.Label{candidate.Class0}, report.Oversubscribed)
		assert.Equal(t, uint64(4), report.Audit[candidate.Class1].Unallocated)
	})

	t.Run("length", func(t *testing.T) {
		report, err := New(blobstore.NewMemoryStore(), f.extractor, WithClampMode(federation.ClampLength)).
			Run(context.Background(), f.pool, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Clients[1].Window(candidate.Class0).Len())
		assert.Zero(t, report.Audit.Revisits())
		assert.Equal(t, "length", report.ClampMode)
	})
}

func TestRun_PersistErrorStopsAtFailingClient(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("client1/", fs.Fault{FailOnOpen: true})
	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(faulty))

	report, err := New(store, f.extractor, WithIDGenerator(CounterIDs())).Run(context.Background(), f.pool, threeClients())
	require.Error(t, err)

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Client)
	assert.Contains(t, pe.Path, "client1/")
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Contains(t, []int{2, 4, 5}, pe.Index)

	require.Len(t, report.Clients, 2)
	assert.NotEmpty(t, report.Clients[1].Error)
	assert.FileExists(t, filepath.Join(dir, "client0", "0", "000000.nii"))
	assert.FileExists(t, filepath.Join(dir, "client0", "1", "000001.nii"))

	entries, err := os.ReadDir(filepath.Join(dir, "client2", "0"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ContinueOnError(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("client1/1/", fs.Fault{FailOnOpen: true})
	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(faulty))
	var m metric.Basic

	report, err := New(store, f.extractor, WithIDGenerator(CounterIDs()), WithContinueOnError(true), WithMetrics(&m)).
		Run(context.Background(), f.pool, threeClients())

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Client)
	assert.Equal(t, candidate.Class1, pe.Class)
	assert.Equal(t, 2, pe.Index)

	require.Len(t, report.Clients, 3)
	assert.Equal(t, [candidate.NumClasses]int{2, 1}, report.Clients[2].Written)
	assert.FileExists(t, filepath.Join(dir, "client2", "1", "000003.nii"))
	assert.Equal(t, int64(1), m.Stats().ClientErrors)
}

func TestRun_MissingVolume(t *testing.T) {
	f := newFixture()
	pool := candidate.NewPool(testutil.Records("missing", coord.WorldCoordinate{}, candidate.Class1, 1), nil)
	cfg := federation.Config{Rows: []federation.Row{{ClientID: "a", Class0Ratio: 1, Class1Ratio: 1}}}

	_, err := New(blobstore.NewMemoryStore(), f.extractor).Run(context.Background(), pool, cfg)
	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, candidate.Class1, pe.Class)
	assert.ErrorIs(t, err, volume.ErrNotFound)
}

func TestRun_EmptyPatches(t *testing.T) {
	f := newFixture()
	outside := testutil.WorldAt(f.vol, 20, 5, 0)
	pool := candidate.NewPool(append(
		testutil.Records("s1", outside, candidate.Class0, 1),
		testutil.Records("s1", testutil.WorldAt(f.vol, 5, 5, 0), candidate.Class0, 1)...,
	), nil)
	cfg := federation.Config{Rows: []federation.Row{{ClientID: "a", Class0Ratio: 1, Class1Ratio: 1}}}

	t.Run("files", func(t *testing.T) {
		var m metric.Basic
		report, err := New(blobstore.NewMemoryStore(), f.extractor, WithMetrics(&m)).Run(context.Background(), pool, cfg)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Clients[0].Skipped)
		assert.Equal(t, 1, report.Clients[0].Written[candidate.Class0])
		assert.Equal(t, int64(1), m.Stats().Skipped)
	})

	t.Run("stacked", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		report, err := New(store, f.extractor, WithFormat(format.NPY), WithPadValue(-1)).Run(context.Background(), pool, cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Clients[0].Written[candidate.Class0])

		data, err := blobstore.ReadAll(context.Background(), store, StackPath(0, candidate.Class0, format.NPY, format.CompressionNone))
		require.NoError(t, err)
		shape, vals, err := format.DecodeNPY(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2 * half, 2 * half}, shape)
		for _, v := range vals[:4*half*half] {
			assert.Equal(t, int16(-1), v)
		}
	})
}

func TestRun_StackedCompressed(t *testing.T) {
	f := newFixture()
	for _, comp := range []format.Compression{format.CompressionZSTD, format.CompressionLZ4} {
		t.Run(comp.String(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			report, err := New(store, f.extractor, WithFormat(format.NPY), WithCompression(comp)).
				Run(context.Background(), f.pool, threeClients())
			require.NoError(t, err)
			assert.Equal(t, comp.String(), report.Compression)

			name := StackPath(0, candidate.Class0, format.NPY, comp)
			assert.Equal(t, "client0/class0.npy"+comp.Suffix(), name)
			data, err := blobstore.ReadAll(context.Background(), store, name)
			require.NoError(t, err)

			r, err := format.NewDecompressReader(bytes.NewReader(data), comp)
			require.NoError(t, err)
			defer r.Close()
			shape, vals, err := format.DecodeNPY(r)
			require.NoError(t, err)
			assert.Equal(t, []int{4, 2 * half, 2 * half}, shape)

			c := f.centres[candidate.Class0][0]
			assert.Equal(t, testutil.RampValue(c.I-half, c.J-half, c.K), vals[0])
		})
	}
}

func TestRun_CompressionNeedsStackedFormat(t *testing.T) {
	f := newFixture()
	_, err := New(blobstore.NewMemoryStore(), f.extractor, WithCompression(format.CompressionZSTD)).
		Run(context.Background(), f.pool, threeClients())
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestRun_JPEG(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	_, err := New(store, f.extractor, WithFormat(format.JPEG), WithJPEGQuality(80), WithIDGenerator(CounterIDs())).
		Run(context.Background(), f.pool, threeClients())
	require.NoError(t, err)

	names, err := store.List(context.Background(), "client2/")
	require.NoError(t, err)
	assert.Equal(t, []string{"client2/0/000006.jpg", "client2/0/000007.jpg", "client2/1/000003.jpg"}, names)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(blobstore.NewMemoryStore(), f.extractor).Run(ctx, f.pool, threeClients())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRandomIDs(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	report, err := New(store, f.extractor).Run(context.Background(), f.pool, threeClients())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, cr := range report.Clients {
		for _, file := range cr.Files {
			assert.False(t, seen[file.Path])
			seen[file.Path] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestRun_SingleClientRoundTrip(t *testing.T) {
	f := newFixture()
	store := blobstore.NewMemoryStore()
	cfg := federation.Config{Rows: []federation.Row{{ClientID: "only", Class0Ratio: 1, Class1Ratio: 1}}}

	report, err := New(store, f.extractor, WithIDGenerator(CounterIDs())).Run(context.Background(), f.pool, cfg)
	require.NoError(t, err)
	require.Len(t, report.Clients, 1)
	assert.Equal(t, [candidate.NumClasses]int{8, 4}, report.Clients[0].Written)
	assert.Zero(t, report.Audit.Revisits())

	ctx := context.Background()
	for _, tt := range []struct {
		label candidate.Label
		want  int
	}{{candidate.Class0, 8}, {candidate.Class1, 4}} {
		names, err := store.List(ctx, ClassDir(0, tt.label)+"/")
		require.NoError(t, err)
		require.Len(t, names, tt.want)
		for i, name := range names {
			assert.Equal(t, FilePath(0, tt.label, fmt.Sprintf("%06d", i), format.NIfTI), name)
		}
	}

	names, err := store.List(ctx, "client1")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAutoFormat(t *testing.T) {
	assert.Equal(t, format.NPY, AutoFormat(federation.Unlimited))
	assert.Equal(t, format.JPEG, AutoFormat(0))
	assert.Equal(t, format.JPEG, AutoFormat(1))
	assert.Equal(t, format.JPEG, AutoFormat(MaxPerFile))
	assert.Equal(t, format.NPY, AutoFormat(MaxPerFile+1))
}

func TestRun_ResetFailureIsFatal(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stale"), 0o755))
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("stale", fs.Fault{FailOnRemove: true})
	var m metric.Basic

	report, err := New(blobstore.NewLocalStore(dir, blobstore.WithFileSystem(faulty)), f.extractor, WithMetrics(&m)).
		Run(context.Background(), f.pool, threeClients())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, int64(1), m.Stats().ResetErrors)
	assert.NoDirExists(t, filepath.Join(dir, "client0"))
}
