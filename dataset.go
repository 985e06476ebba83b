package nodulefed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/internal/resource"
	"github.com/hupe1980/nodulefed/patch"
	"github.com/hupe1980/nodulefed/volume"
)

// Report describes one allocation run. It is persisted as manifest.json.
type Report = allocator.Report

// Dataset layout relative to the dataset directory.
const (
	CSVDir         = "CSVFILES"
	CandidatesFile = "candidates.csv"
	AnnotationFile = "annotations.csv"
	SeriesIDsFile  = "seriesuids.csv"
	RawDataDir     = "rawData"
)

// Dataset is a loaded candidate pool plus the volumes its patches come from.
// It is safe for concurrent use; allocations into the same store must not
// overlap because every run clears its store.
type Dataset struct {
	pool      *candidate.Pool
	seriesIDs []string
	loader    volume.Loader
	cache     *volume.CachingLoader
	extractor *patch.Extractor
	rc        *resource.Controller
	logger    *Logger
	opts      options
}

// Open loads the candidate lists of the dataset at dir and reads volumes
// from its rawData directory on demand. A missing seriesuids.csv falls back
// to the series referenced by the candidates.
func Open(ctx context.Context, dir string, optFns ...Option) (*Dataset, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithDataset(dir)

	pool, err := candidate.LoadFiles(
		filepath.Join(dir, CSVDir, CandidatesFile),
		filepath.Join(dir, CSVDir, AnnotationFile),
	)
	if err != nil {
		logger.LogOpen(ctx, 0, 0, err)
		return nil, err
	}

	ids, err := readSeriesIDs(filepath.Join(dir, CSVDir, SeriesIDsFile))
	if err != nil {
		logger.LogOpen(ctx, 0, 0, err)
		return nil, err
	}

	ds := newDataset(pool, volume.NewMetaImageLoader(filepath.Join(dir, RawDataDir)), o)
	ds.logger = logger
	if ids != nil {
		ds.seriesIDs = ids
	}
	logger.LogOpen(ctx, pool.Len(), len(ds.seriesIDs), nil)
	return ds, nil
}

// New wraps an in-memory pool and a volume loader.
func New(pool *candidate.Pool, loader volume.Loader, optFns ...Option) *Dataset {
	return newDataset(pool, loader, applyOptions(optFns))
}

func newDataset(pool *candidate.Pool, loader volume.Loader, o options) *Dataset {
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   o.volumeCacheBytes,
		MaxWorkers:         o.workers,
		IOLimitBytesPerSec: o.ioLimit,
	})
	ds := &Dataset{
		pool:      pool,
		seriesIDs: pool.SeriesIDs(),
		loader:    loader,
		rc:        rc,
		logger:    o.logger,
		opts:      o,
	}
	if o.volumeCacheBytes > 0 {
		ds.cache = volume.NewCachingLoader(loader, o.volumeCacheBytes, rc)
		ds.loader = ds.cache
	}
	ds.extractor = patch.NewExtractor(ds.loader, o.halfSize)
	return ds
}

func readSeriesIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return candidate.ReadSeriesIDs(f)
}

// Pool returns the full candidate pool.
func (d *Dataset) Pool() *candidate.Pool { return d.pool }

// SeriesIDs returns the series of the dataset.
func (d *Dataset) SeriesIDs() []string { return append([]string(nil), d.seriesIDs...) }

// Loader returns the volume loader, including the cache when enabled.
func (d *Dataset) Loader() volume.Loader { return d.loader }

// Plan computes the windows Allocate would assign without touching any store.
func (d *Dataset) Plan(cfg federation.Config, maxNumber int) ([]federation.Assignment, error) {
	pool := d.pool.Head(maxNumber)
	if pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	return federation.Plan(cfg, pool.Counts(), d.opts.clamp)
}

// Allocate distributes the first maxNumber candidates (Unlimited for all)
// across the clients of cfg and writes them to store. Unless WithFormat is
// set, pools of at most 200 candidates become JPEG files and larger ones
// stacked NPY arrays.
func (d *Dataset) Allocate(ctx context.Context, store blobstore.Store, cfg federation.Config, maxNumber int) (*Report, error) {
	f := d.opts.format
	if f == "" {
		f = allocator.AutoFormat(maxNumber)
	}
	return d.run(ctx, d.logger.WithMode("balanced"), store, d.pool.Head(maxNumber), cfg, f)
}

// AllocateUnbalanced caps each class with policy before allocating and
// writes JPEG files unless WithFormat is set.
func (d *Dataset) AllocateUnbalanced(ctx context.Context, store blobstore.Store, cfg federation.Config, policy federation.SamplingPolicy) (*Report, error) {
	f := d.opts.format
	if f == "" {
		f = format.JPEG
	}
	return d.run(ctx, d.logger.WithMode("unbalanced"), store, policy.Apply(d.pool), cfg, f)
}

func (d *Dataset) run(ctx context.Context, logger *Logger, store blobstore.Store, pool *candidate.Pool, cfg federation.Config, f format.Format) (*Report, error) {
	if pool.Len() == 0 {
		logger.LogRun(ctx, nil, ErrEmptyPool)
		return nil, ErrEmptyPool
	}
	o := d.opts
	a := allocator.New(store, d.extractor,
		allocator.WithFormat(f),
		allocator.WithCompression(o.compression),
		allocator.WithIDGenerator(o.ids),
		allocator.WithLogger(logger.Logger),
		allocator.WithMetrics(o.metrics),
		allocator.WithResourceController(d.rc),
		allocator.WithClampMode(o.clamp),
		allocator.WithContinueOnError(o.continueOnError),
		allocator.WithPadValue(o.padValue),
		allocator.WithCodec(o.codec),
		allocator.WithJPEGQuality(o.jpegQuality),
	)
	report, err := a.Run(ctx, pool, cfg)
	logger.LogRun(ctx, report, err)
	if err != nil {
		return report, fmt.Errorf("allocate: %w", err)
	}
	return report, nil
}

// Highlight returns a copy of the slice containing world with a frame drawn
// around the patch box.
func (d *Dataset) Highlight(ctx context.Context, seriesID string, world coord.WorldCoordinate) (*volume.Plane, error) {
	p, err := d.extractor.Highlight(ctx, seriesID, world, d.opts.border, d.opts.marker)
	d.logger.LogHighlight(ctx, seriesID, world, err)
	return p, err
}

// Patch extracts the patch of one candidate.
func (d *Dataset) Patch(ctx context.Context, rec candidate.Record) (*patch.Patch, error) {
	return d.extractor.Extract(ctx, rec.SeriesID, rec.World)
}
