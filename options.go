package nodulefed

import (
	"log/slog"

	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/codec"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/metric"
	"github.com/hupe1980/nodulefed/patch"
)

// Unlimited disables the maxNumber prefix in Allocate.
const Unlimited = federation.Unlimited

type options struct {
	logger           *Logger
	metrics          metric.Collector
	codec            codec.Codec
	format           format.Format
	compression      format.Compression
	ids              allocator.IDGenerator
	halfSize         int
	border           int
	marker           int16
	workers          int64
	ioLimit          int64
	volumeCacheBytes int64
	clamp            federation.ClampMode
	continueOnError  bool
	padValue         int16
	jpegQuality      int
}

// Option configures a Dataset.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
//	ds, _ := nodulefed.Open(ctx, dir, nodulefed.WithLogger(nodulefed.NewJSONLogger(slog.LevelDebug)))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetrics configures a metrics collector. Pass nil to disable metrics.
func WithMetrics(m metric.Collector) Option {
	return func(o *options) {
		if m == nil {
			m = metric.Noop{}
		}
		o.metrics = m
	}
}

// WithCodec sets the manifest codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFormat forces the output format instead of choosing one per run.
func WithFormat(f format.Format) Option {
	return func(o *options) { o.format = f }
}

// WithCompression compresses NPY output.
func WithCompression(c format.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithIDGenerator sets how patch files are named.
func WithIDGenerator(g allocator.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithHalfSize sets the half side length of extracted patches. Default 30.
func WithHalfSize(h int) Option {
	return func(o *options) { o.halfSize = h }
}

// WithHighlight sets the frame width and marker value used by Highlight.
func WithHighlight(border int, marker int16) Option {
	return func(o *options) {
		o.border = border
		o.marker = marker
	}
}

// WithWorkers sets how many patches are extracted concurrently. Default 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = int64(n) }
}

// WithIOLimit throttles output writes to bytesPerSec. 0 disables the limit.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) { o.ioLimit = bytesPerSec }
}

// WithVolumeCache keeps up to bytes of decoded volumes in memory so a
// series is read once per run instead of once per candidate. Off by default.
func WithVolumeCache(bytes int64) Option {
	return func(o *options) { o.volumeCacheBytes = bytes }
}

// WithClampMode selects the cursor clamp on class exhaustion.
func WithClampMode(m federation.ClampMode) Option {
	return func(o *options) { o.clamp = m }
}

// WithContinueOnError keeps allocating later clients after a failure.
func WithContinueOnError(enabled bool) Option {
	return func(o *options) { o.continueOnError = enabled }
}

// WithPadValue sets the fill value of clipped patches in NPY output.
func WithPadValue(v int16) Option {
	return func(o *options) { o.padValue = v }
}

// WithJPEGQuality sets the JPEG quality (1-100). Default 95.
func WithJPEGQuality(q int) Option {
	return func(o *options) { o.jpegQuality = q }
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:      NoopLogger(),
		metrics:     metric.Noop{},
		codec:       codec.Default,
		halfSize:    patch.DefaultHalfSize,
		border:      patch.DefaultBorder,
		marker:      patch.DefaultMarker,
		workers:     1,
		jpegQuality: format.DefaultJPEGQuality,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
