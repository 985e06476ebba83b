package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/nodulefed"
	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/codec"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
	promcollector "github.com/hupe1980/nodulefed/metric/prometheus"
)

type allocateFlags struct {
	common
	store storeFlags

	config      string
	max         int
	unbalanced  bool
	class0Limit int
	class1Limit int
	format      string
	compress    string
	clamp       string
	ids         string
	codec       string
	workers     int
	ioLimit     int64
	cacheBytes  int64
	continueErr bool
	pad         int
	jpegQuality int
	metricsAddr string
}

func runAllocate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f allocateFlags
	fs := newFlagSet("allocate", stderr)
	f.common.register(fs)
	f.store.register(fs)
	fs.StringVar(&f.config, "config", "", "federation config CSV (clientId,class0Ratio,class1Ratio)")
	fs.IntVar(&f.max, "max", nodulefed.Unlimited, "use only the first N candidates; -1 for all")
	fs.BoolVar(&f.unbalanced, "unbalanced", false, "cap each class before allocating")
	fs.IntVar(&f.class0Limit, "class0-limit", federation.DefaultSamplingPolicy.Class0Limit, "class 0 cap with -unbalanced; -1 for all")
	fs.IntVar(&f.class1Limit, "class1-limit", federation.DefaultSamplingPolicy.Class1Limit, "class 1 cap with -unbalanced; -1 for all")
	fs.StringVar(&f.format, "format", "auto", "output format: auto, nii, jpg, npy")
	fs.StringVar(&f.compress, "compress", "none", "npy compression: none, zstd, lz4")
	fs.StringVar(&f.clamp, "clamp", "last-index", "cursor clamp on exhaustion: last-index, length")
	fs.StringVar(&f.ids, "ids", "uuid", "patch file names: uuid, counter")
	fs.StringVar(&f.codec, "codec", codec.Default.Name(), "manifest codec: json, go-json")
	fs.IntVar(&f.workers, "workers", 1, "patches extracted concurrently")
	fs.Int64Var(&f.ioLimit, "io-limit", 0, "write throughput limit in bytes/sec; 0 for none")
	fs.Int64Var(&f.cacheBytes, "cache-bytes", 0, "volume cache size in bytes; 0 disables the cache")
	fs.BoolVar(&f.continueErr, "continue", false, "keep allocating later clients after a failure")
	fs.IntVar(&f.pad, "pad", 0, "fill value of clipped patches in npy output")
	fs.IntVar(&f.jpegQuality, "jpeg-quality", format.DefaultJPEGQuality, "JPEG quality (1-100)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.config == "" {
		return errors.New("allocate: -config is required")
	}

	opts, err := f.options()
	if err != nil {
		return err
	}
	if f.metricsAddr != "" {
		collector, err := promcollector.New(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		shutdown, err := serveMetrics(f.metricsAddr, stderr)
		if err != nil {
			return err
		}
		defer shutdown()
		opts = append(opts, nodulefed.WithMetrics(collector))
	}

	cfg, err := federation.LoadConfigFile(f.config)
	if err != nil {
		return err
	}
	store, err := f.store.open(ctx)
	if err != nil {
		return err
	}
	ds, err := f.open(ctx, stderr, opts...)
	if err != nil {
		return err
	}
	defer ds.Close()

	var report *nodulefed.Report
	if f.unbalanced {
		policy := federation.SamplingPolicy{Class0Limit: f.class0Limit, Class1Limit: f.class1Limit}
		report, err = ds.AllocateUnbalanced(ctx, store, cfg, policy)
	} else {
		report, err = ds.Allocate(ctx, store, cfg, f.max)
	}
	if report != nil {
		printReport(stdout, report)
	}
	return err
}

func (f *allocateFlags) options() ([]nodulefed.Option, error) {
	var opts []nodulefed.Option
	if f.format != "auto" {
		ff, err := format.ParseFormat(f.format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nodulefed.WithFormat(ff))
	}
	comp, err := format.ParseCompression(f.compress)
	if err != nil {
		return nil, err
	}
	clamp, err := federation.ParseClampMode(f.clamp)
	if err != nil {
		return nil, err
	}
	c, ok := codec.ByName(f.codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", f.codec)
	}

	var ids allocator.IDGenerator
	switch f.ids {
	case "uuid":
		ids = allocator.RandomIDs()
	case "counter":
		ids = allocator.CounterIDs()
	default:
		return nil, fmt.Errorf("unknown id scheme %q", f.ids)
	}

	return append(opts,
		nodulefed.WithCompression(comp),
		nodulefed.WithClampMode(clamp),
		nodulefed.WithCodec(c),
		nodulefed.WithIDGenerator(ids),
		nodulefed.WithWorkers(f.workers),
		nodulefed.WithIOLimit(f.ioLimit),
		nodulefed.WithVolumeCache(f.cacheBytes),
		nodulefed.WithContinueOnError(f.continueErr),
		nodulefed.WithPadValue(int16(f.pad)),
		nodulefed.WithJPEGQuality(f.jpegQuality),
	), nil
}

func printReport(w io.Writer, r *nodulefed.Report) {
	fmt.Fprintf(w, "format %s, %d class-0 and %d class-1 candidates\n", r.Format, r.Totals.Class0, r.Totals.Class1)
	for _, c := range r.Clients {
		status := "ok"
		if c.Error != "" {
			status = c.Error
		}
		fmt.Fprintf(w, "client%d %-12s class0 %-10s class1 %-10s written %d/%d skipped %d  %s\n",
			c.Client, c.ClientID, c.Windows[0], c.Windows[1], c.Written[0], c.Written[1], c.Skipped, status)
	}
	if n := r.Audit.Revisits(); n > 0 {
		fmt.Fprintf(w, "warning: %d candidates were assigned more than once\n", n)
	}
}

func serveMetrics(addr string, stderr io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(stderr, "metrics server:", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
