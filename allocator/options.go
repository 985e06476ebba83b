package allocator

import (
	"log/slog"

	"github.com/hupe1980/nodulefed/codec"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/internal/resource"
	"github.com/hupe1980/nodulefed/metric"
)

type options struct {
	format          format.Format
	compression     format.Compression
	ids             IDGenerator
	logger          *slog.Logger
	metrics         metric.Collector
	rc              *resource.Controller
	clamp           federation.ClampMode
	continueOnError bool
	pad             int16
	codec           codec.Codec
	manifest        bool
	jpegQuality     int
}

func defaultOptions() options {
	return options{
		format:      format.NIfTI,
		ids:         RandomIDs(),
		logger:      slog.New(slog.DiscardHandler),
		metrics:     metric.Noop{},
		rc:          resource.NewController(resource.Config{}),
		clamp:       federation.ClampLastIndex,
		codec:       codec.Default,
		manifest:    true,
		jpegQuality: format.DefaultJPEGQuality,
	}
}

// Option configures an Allocator.
type Option func(*options)

// WithFormat sets the output format. Default NIfTI.
func WithFormat(f format.Format) Option {
	return func(o *options) { o.format = f }
}

// WithCompression compresses stacked output.
func WithCompression(c format.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithIDGenerator sets how per-file patches are named. Default RandomIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metric.Collector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithResourceController bounds worker concurrency and write throughput.
// The default controller runs one worker without IO limits.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		if rc != nil {
			o.rc = rc
		}
	}
}

// WithClampMode selects the cursor clamp applied on class exhaustion.
func WithClampMode(m federation.ClampMode) Option {
	return func(o *options) { o.clamp = m }
}

// WithContinueOnError keeps processing later clients after a client fails.
func WithContinueOnError(enabled bool) Option {
	return func(o *options) { o.continueOnError = enabled }
}

// WithPadValue sets the fill value for clipped patches in stacked output.
func WithPadValue(v int16) Option {
	return func(o *options) { o.pad = v }
}

// WithCodec sets the manifest codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithManifest toggles writing ManifestName after the run. Default on.
func WithManifest(enabled bool) Option {
	return func(o *options) { o.manifest = enabled }
}

// WithJPEGQuality sets the JPEG quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(o *options) { o.jpegQuality = q }
}
