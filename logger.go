package nodulefed

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/coord"
)

// Logger wraps slog.Logger with nodulefed-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithDataset adds the dataset directory to the logger.
func (l *Logger) WithDataset(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", dir),
	}
}

// WithMode adds the allocation mode ("balanced" or "unbalanced").
func (l *Logger) WithMode(mode string) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", mode),
	}
}

// LogOpen logs loading a dataset.
func (l *Logger) LogOpen(ctx context.Context, candidates, series int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dataset open failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset opened",
			"candidates", candidates,
			"series", series,
		)
	}
}

// LogRun logs the outcome of an allocation.
func (l *Logger) LogRun(ctx context.Context, r *allocator.Report, err error) {
	switch {
	case r == nil:
		l.ErrorContext(ctx, "allocation failed",
			"error", err,
		)
	case err != nil:
		l.WarnContext(ctx, "allocation completed with failures",
			"clients", len(r.Clients),
			"written", r.Written(),
			"error", err,
		)
	default:
		l.InfoContext(ctx, "allocation completed",
			"clients", len(r.Clients),
			"written", r.Written(),
			"format", string(r.Format),
			"revisited", r.Audit.Revisits(),
		)
	}
}

// LogHighlight logs rendering a highlighted slice.
func (l *Logger) LogHighlight(ctx context.Context, seriesID string, world coord.WorldCoordinate, err error) {
	if err != nil {
		l.ErrorContext(ctx, "highlight failed",
			"series", seriesID,
			"world", world.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "highlight rendered",
			"series", seriesID,
			"world", world.String(),
		)
	}
}
