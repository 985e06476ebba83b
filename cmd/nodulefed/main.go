// Command nodulefed builds simulated federated-learning datasets from a
// LUNA16-style CT corpus.
//
//	nodulefed allocate  -data ./LUNA16 -config clients.csv -out ./federated
//	nodulefed plan      -data ./LUNA16 -config clients.csv
//	nodulefed highlight -data ./LUNA16 -series 1.3.6... -x -56.1 -y 67.6 -z -311.9 -o frame.jpg
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/nodulefed"
)

const usage = `usage: nodulefed <command> [flags]

commands:
  allocate   split the candidate pool across clients and write their patches
  plan       print each client's quota and windows without writing anything
  highlight  write one slice with a frame drawn around a candidate

run "nodulefed <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "nodulefed:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "allocate":
		return runAllocate(ctx, args[1:], stdout, stderr)
	case "plan":
		return runPlan(ctx, args[1:], stdout, stderr)
	case "highlight":
		return runHighlight(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// common holds the flags every subcommand accepts.
type common struct {
	data     string
	logLevel string
	logJSON  bool
	half     int
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.data, "data", ".", "dataset directory containing CSVFILES/ and rawData/")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&c.logJSON, "log-json", false, "emit JSON logs")
	fs.IntVar(&c.half, "half", 30, "patch half size in voxels")
}

func (c *common) logger(stderr io.Writer) (*nodulefed.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q", c.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.logJSON {
		return nodulefed.NewLogger(slog.NewJSONHandler(stderr, opts)), nil
	}
	return nodulefed.NewLogger(slog.NewTextHandler(stderr, opts)), nil
}

func (c *common) open(ctx context.Context, stderr io.Writer, extra ...nodulefed.Option) (*nodulefed.Dataset, error) {
	logger, err := c.logger(stderr)
	if err != nil {
		return nil, err
	}
	opts := append([]nodulefed.Option{
		nodulefed.WithLogger(logger),
		nodulefed.WithHalfSize(c.half),
	}, extra...)
	return nodulefed.Open(ctx, c.data, opts...)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
