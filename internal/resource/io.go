package resource

import (
	"context"
	"io"
)

// RateLimitedWriter throttles writes through a Controller's IO budget.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewRateLimitedWriter wraps w.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}
