package allocator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/internal/resource"
	"github.com/hupe1980/nodulefed/patch"
	"github.com/hupe1980/nodulefed/volume"
)

// MaxPerFile is the largest candidate count AutoFormat still writes as
// individual JPEG files.
const MaxPerFile = 200

// AutoFormat picks the output format for a pool limited to maxNumber
// candidates: JPEG files for 0 <= maxNumber <= MaxPerFile, stacked NPY for
// larger and unlimited (negative) pools.
func AutoFormat(maxNumber int) format.Format {
	if maxNumber >= 0 && maxNumber <= MaxPerFile {
		return format.JPEG
	}
	return format.NPY
}

// Allocator writes a federation plan to a blob store.
type Allocator struct {
	store     blobstore.Store
	extractor *patch.Extractor
	opts      options
}

// New returns an Allocator writing to store and cropping with extractor.
func New(store blobstore.Store, extractor *patch.Extractor, optFns ...Option) *Allocator {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return &Allocator{store: store, extractor: extractor, opts: o}
}

// Format returns the configured output format.
func (a *Allocator) Format() format.Format { return a.opts.format }

// Run plans the allocation of pool under cfg, resets the output layout and
// materialises every client in order.
//
// Planning and validation errors are returned before anything is deleted.
// A failing client stops the run unless WithContinueOnError is set; the
// report then covers every client attempted and the errors are joined.
func (a *Allocator) Run(ctx context.Context, pool *candidate.Pool, cfg federation.Config) (*Report, error) {
	o := a.opts
	if o.compression != format.CompressionNone && !o.format.Stacked() {
		return nil, fmt.Errorf("%w: %s output with %s", ErrUnsupportedCompression, o.format, o.compression)
	}
	var enc format.Encoder
	if !o.format.Stacked() {
		var err error
		if enc, err = a.encoder(); err != nil {
			return nil, err
		}
	}

	class1, class0 := pool.SplitByClass()
	lists := [candidate.NumClasses][]candidate.Record{class0, class1}
	totals := candidate.Totals{Class0: len(class0), Class1: len(class1)}

	plan, err := federation.Plan(cfg, totals, o.clamp)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Codec:          o.codec.Name(),
		Format:         o.format,
		ClampMode:      o.clamp.String(),
		Totals:         totals,
		Oversubscribed: federation.Oversubscribed(cfg, totals),
		Audit:          AuditPlan(plan, totals),
		Started:        time.Now(),
	}
	if o.compression != format.CompressionNone {
		report.Compression = o.compression.String()
	}
	for _, l := range report.Oversubscribed {
		o.logger.WarnContext(ctx, "class ratios exceed the available candidates",
			"class", l.String(),
			"total", totals.Of(l),
		)
	}
	if rev := report.Audit.Revisits(); rev > 0 {
		o.logger.WarnContext(ctx, "exhausted class lists hand out candidates more than once",
			"revisited", rev,
			"clamp", o.clamp.String(),
		)
	}

	start := time.Now()
	err = Reset(ctx, a.store, len(plan))
	o.metrics.RecordReset(time.Since(start), err)
	if err != nil {
		o.logger.ErrorContext(ctx, "output layout reset failed", "error", err)
		return nil, fmt.Errorf("reset output layout: %w", err)
	}
	o.logger.InfoContext(ctx, "output layout reset", "clients", len(plan))

	var errs []error
	for _, asg := range plan {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		cr, err := a.runClient(ctx, enc, asg, lists)
		report.Clients = append(report.Clients, cr)
		if err != nil {
			errs = append(errs, err)
			if !o.continueOnError {
				break
			}
		}
	}
	report.Finished = time.Now()

	if o.manifest && ctx.Err() == nil {
		if err := WriteManifest(ctx, a.store, o.codec, report); err != nil {
			errs = append(errs, fmt.Errorf("write manifest: %w", err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		o.logger.ErrorContext(ctx, "allocation finished with errors",
			"clients", len(report.Clients),
			"written", report.Written(),
			"error", err,
		)
	} else {
		o.logger.InfoContext(ctx, "allocation completed",
			"clients", len(report.Clients),
			"written", report.Written(),
			"duration", report.Finished.Sub(report.Started),
		)
	}
	return report, err
}

func (a *Allocator) encoder() (format.Encoder, error) {
	if a.opts.format == format.JPEG {
		q := a.opts.jpegQuality
		return format.EncoderFunc(func(w io.Writer, p *volume.Plane) error {
			return format.EncodeJPEG(w, p, q)
		}), nil
	}
	return format.EncoderFor(a.opts.format)
}

func (a *Allocator) runClient(ctx context.Context, enc format.Encoder, asg federation.Assignment, lists [candidate.NumClasses][]candidate.Record) (ClientReport, error) {
	cr := ClientReport{Assignment: asg}
	logger := a.opts.logger.With("client", asg.Client, "clientId", asg.ClientID)
	logger.DebugContext(ctx, "materialising client",
		"class0", asg.Window(candidate.Class0).String(),
		"class1", asg.Window(candidate.Class1).String(),
	)

	start := time.Now()
	var err error
	if a.opts.format.Stacked() {
		err = a.writeStacks(ctx, logger, &cr, lists)
	} else {
		err = a.writeFiles(ctx, logger, enc, &cr, lists)
	}
	slices.SortFunc(cr.Files, func(x, y File) int {
		if x.Class != y.Class {
			return int(x.Class) - int(y.Class)
		}
		return x.Index - y.Index
	})

	a.opts.metrics.RecordClient(asg.Client, cr.Written[0]+cr.Written[1], cr.Skipped, time.Since(start), err)
	if err != nil {
		cr.Error = err.Error()
		logger.ErrorContext(ctx, "client failed", "error", err)
		return cr, err
	}
	logger.InfoContext(ctx, "client written",
		"class0", cr.Written[candidate.Class0],
		"class1", cr.Written[candidate.Class1],
		"skipped", cr.Skipped,
	)
	return cr, nil
}

// writeFiles writes one file per patch. The first failure cancels the
// remaining tasks of the client.
func (a *Allocator) writeFiles(ctx context.Context, logger *slog.Logger, enc format.Encoder, cr *ClientReport, lists [candidate.NumClasses][]candidate.Record) error {
	var mu sync.Mutex
	rc := a.opts.rc
	g, gctx := errgroup.WithContext(ctx)

schedule:
	for _, l := range candidate.Labels {
		w := cr.Window(l)
		for idx := w.Start; idx < w.End; idx++ {
			if err := rc.AcquireWorker(gctx); err != nil {
				break schedule
			}
			rec := lists[l][idx]
			g.Go(func() error {
				defer rc.ReleaseWorker()
				f, err := a.writeFile(gctx, logger, enc, cr.Client, l, idx, rec)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					return err
				case f == nil:
					cr.Skipped++
				default:
					cr.Files = append(cr.Files, *f)
					cr.Written[l]++
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// writeFile returns a nil File for an empty patch.
func (a *Allocator) writeFile(ctx context.Context, logger *slog.Logger, enc format.Encoder, client int, l candidate.Label, idx int, rec candidate.Record) (*File, error) {
	start := time.Now()
	name := FilePath(client, l, a.opts.ids.NextID(client, l, idx), a.opts.format)
	fail := func(err error) error {
		a.opts.metrics.RecordPatch(client, int(l), 0, time.Since(start), err)
		return &PersistError{Client: client, Class: l, Index: idx, Path: name, cause: err}
	}

	p, err := a.extractor.Extract(ctx, rec.SeriesID, rec.World)
	if err != nil {
		return nil, fail(err)
	}
	if p.Empty() {
		logger.WarnContext(ctx, "empty patch skipped",
			"class", l.String(),
			"index", idx,
			"series", rec.SeriesID,
			"center", p.Center.String(),
		)
		return nil, nil
	}

	n, err := a.create(ctx, name, func(w io.Writer) error { return enc.Encode(w, p.Plane) })
	if err != nil {
		return nil, fail(err)
	}
	a.opts.metrics.RecordPatch(client, int(l), n, time.Since(start), nil)
	logger.DebugContext(ctx, "patch written", "path", name, "bytes", n)
	return &File{Class: l, Index: idx, SeriesID: rec.SeriesID, Path: name, Bytes: n}, nil
}

// writeStacks writes one padded array per class. Empty patches are kept as
// all-padding entries so the array index matches the window position.
func (a *Allocator) writeStacks(ctx context.Context, logger *slog.Logger, cr *ClientReport, lists [candidate.NumClasses][]candidate.Record) error {
	side := 2 * a.extractor.HalfSize()
	for _, l := range candidate.Labels {
		start := time.Now()
		w := cr.Window(l)
		name := StackPath(cr.Client, l, a.opts.format, a.opts.compression)

		planes, err := a.extractWindow(ctx, cr.Client, l, w, name, lists[l])
		if err != nil {
			return err
		}
		stack := format.NewStack(planes, side, side, a.opts.pad)

		n, err := a.create(ctx, name, func(w io.Writer) error {
			cw, err := format.NewCompressWriter(w, a.opts.compression)
			if err != nil {
				return err
			}
			if err := format.EncodeNPY(cw, stack); err != nil {
				_ = cw.Close()
				return err
			}
			return cw.Close()
		})
		a.opts.metrics.RecordPatch(cr.Client, int(l), n, time.Since(start), err)
		if err != nil {
			return &PersistError{Client: cr.Client, Class: l, Index: -1, Path: name, cause: err}
		}

		cr.Files = append(cr.Files, File{Class: l, Index: -1, Path: name, Bytes: n, Patches: stack.N})
		cr.Written[l] = stack.N
		logger.DebugContext(ctx, "stack written", "path", name, "patches", stack.N, "bytes", n)
	}
	return nil
}

func (a *Allocator) extractWindow(ctx context.Context, client int, l candidate.Label, w federation.Window, name string, list []candidate.Record) ([]*volume.Plane, error) {
	planes := make([]*volume.Plane, w.Len())
	rc := a.opts.rc
	g, gctx := errgroup.WithContext(ctx)
	for i := range planes {
		if err := rc.AcquireWorker(gctx); err != nil {
			break
		}
		rec := list[w.Start+i]
		g.Go(func() error {
			defer rc.ReleaseWorker()
			p, err := a.extractor.Extract(gctx, rec.SeriesID, rec.World)
			if err != nil {
				return &PersistError{Client: client, Class: l, Index: w.Start + i, Path: name, cause: err}
			}
			planes[i] = p.Plane
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return planes, nil
}

// create streams fill into a new blob through the IO limiter and returns
// the bytes written. The blob is aborted if fill fails.
func (a *Allocator) create(ctx context.Context, name string, fill func(io.Writer) error) (int64, error) {
	w, err := a.store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: resource.NewRateLimitedWriter(ctx, w, a.opts.rc)}
	if err := fill(cw); err != nil {
		_ = w.Abort()
		return cw.n, err
	}
	if err := w.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
