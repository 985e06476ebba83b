// Package metric defines the hooks an allocation run reports through.
//
// Implement Collector to integrate with a monitoring system; the
// metric/prometheus subpackage provides a client_golang implementation.
package metric

import (
	"sync/atomic"
	"time"
)

// Collector receives operational metrics from the allocator.
// Implementations must be safe for concurrent use.
type Collector interface {
	// RecordReset is called once the output layout has been cleared and recreated.
	RecordReset(duration time.Duration, err error)

	// RecordPatch is called after each output file is written.
	// bytes is the encoded size, err is nil if successful.
	RecordPatch(client, class int, bytes int64, duration time.Duration, err error)

	// RecordClient is called when a client's output is complete.
	// written and skipped count patches, err is nil if every write succeeded.
	RecordClient(client, written, skipped int, duration time.Duration, err error)
}

// Noop discards all metrics.
type Noop struct{}

func (Noop) RecordReset(time.Duration, error)                  {}
func (Noop) RecordPatch(int, int, int64, time.Duration, error) {}
func (Noop) RecordClient(int, int, int, time.Duration, error)  {}

// Basic keeps in-memory counters. Useful for tests and debugging.
type Basic struct {
	Resets          atomic.Int64
	ResetErrors     atomic.Int64
	Patches         atomic.Int64
	PatchErrors     atomic.Int64
	PatchBytes      atomic.Int64
	PatchTotalNanos atomic.Int64
	Clients         atomic.Int64
	ClientErrors    atomic.Int64
	Skipped         atomic.Int64
}

// RecordReset implements Collector.
func (b *Basic) RecordReset(_ time.Duration, err error) {
	b.Resets.Add(1)
	if err != nil {
		b.ResetErrors.Add(1)
	}
}

// RecordPatch implements Collector.
func (b *Basic) RecordPatch(_, _ int, bytes int64, duration time.Duration, err error) {
	b.Patches.Add(1)
	b.PatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PatchErrors.Add(1)
		return
	}
	b.PatchBytes.Add(bytes)
}

// RecordClient implements Collector.
func (b *Basic) RecordClient(_, _, skipped int, _ time.Duration, err error) {
	b.Clients.Add(1)
	b.Skipped.Add(int64(skipped))
	if err != nil {
		b.ClientErrors.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (b *Basic) Stats() Stats {
	s := Stats{
		Resets:       b.Resets.Load(),
		ResetErrors:  b.ResetErrors.Load(),
		Patches:      b.Patches.Load(),
		PatchErrors:  b.PatchErrors.Load(),
		PatchBytes:   b.PatchBytes.Load(),
		Clients:      b.Clients.Load(),
		ClientErrors: b.ClientErrors.Load(),
		Skipped:      b.Skipped.Load(),
	}
	if s.Patches > 0 {
		s.PatchAvgNanos = b.PatchTotalNanos.Load() / s.Patches
	}
	return s
}

// Stats is a snapshot of Basic.
type Stats struct {
	Resets        int64
	ResetErrors   int64
	Patches       int64
	PatchErrors   int64
	PatchBytes    int64
	PatchAvgNanos int64
	Clients       int64
	ClientErrors  int64
	Skipped       int64
}
