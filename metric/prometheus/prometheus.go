// Package prometheus exports allocation metrics through client_golang.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/nodulefed/metric"
)

const namespace = "nodulefed"

// Collector implements metric.Collector with Prometheus counters and histograms.
type Collector struct {
	resets        *prometheus.CounterVec
	patches       *prometheus.CounterVec
	patchBytes    *prometheus.CounterVec
	patchLatency  *prometheus.HistogramVec
	clients       *prometheus.CounterVec
	clientLatency prometheus.Histogram
	skipped       *prometheus.CounterVec
}

var _ metric.Collector = (*Collector)(nil)

// New creates a Collector and registers it with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_resets_total",
			Help:      "Output layout resets",
		}, []string{"status"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_written_total",
			Help:      "Output files written",
		}, []string{"client", "class", "status"}),
		patchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_bytes_total",
			Help:      "Encoded bytes written",
		}, []string{"client", "class"}),
		patchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "patch_duration_seconds",
			Help:      "Time to extract, encode and write one output file",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"class"}),
		clients: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_completed_total",
			Help:      "Clients whose output has been materialised",
		}, []string{"status"}),
		clientLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_duration_seconds",
			Help:      "Time to materialise one client",
			Buckets:   prometheus.DefBuckets,
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_skipped_total",
			Help:      "Empty patches not written",
		}, []string{"client"}),
	}

	for _, col := range []prometheus.Collector{
		c.resets, c.patches, c.patchBytes, c.patchLatency, c.clients, c.clientLatency, c.skipped,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordReset implements metric.Collector.
func (c *Collector) RecordReset(_ time.Duration, err error) {
	c.resets.WithLabelValues(status(err)).Inc()
}

// RecordPatch implements metric.Collector.
func (c *Collector) RecordPatch(client, class int, bytes int64, d time.Duration, err error) {
	cl, cls := strconv.Itoa(client), strconv.Itoa(class)
	c.patches.WithLabelValues(cl, cls, status(err)).Inc()
	c.patchLatency.WithLabelValues(cls).Observe(d.Seconds())
	if err == nil {
		c.patchBytes.WithLabelValues(cl, cls).Add(float64(bytes))
	}
}

// RecordClient implements metric.Collector.
func (c *Collector) RecordClient(client, _, skipped int, d time.Duration, err error) {
	c.clients.WithLabelValues(status(err)).Inc()
	c.clientLatency.Observe(d.Seconds())
	if skipped > 0 {
		c.skipped.WithLabelValues(strconv.Itoa(client)).Add(float64(skipped))
	}
}
