package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hupe1980/nodulefed"
	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/federation"
)

func runPlan(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		c      common
		config string
		maxNum int
		clamp  string
	)
	fs := newFlagSet("plan", stderr)
	c.register(fs)
	fs.StringVar(&config, "config", "", "federation config CSV (clientId,class0Ratio,class1Ratio)")
	fs.IntVar(&maxNum, "max", nodulefed.Unlimited, "use only the first N candidates; -1 for all")
	fs.StringVar(&clamp, "clamp", "last-index", "cursor clamp on exhaustion: last-index, length")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if config == "" {
		return errors.New("plan: -config is required")
	}

	mode, err := federation.ParseClampMode(clamp)
	if err != nil {
		return err
	}
	cfg, err := federation.LoadConfigFile(config)
	if err != nil {
		return err
	}
	ds, err := c.open(ctx, stderr, nodulefed.WithClampMode(mode))
	if err != nil {
		return err
	}
	defer ds.Close()

	plan, err := ds.Plan(cfg, maxNum)
	if err != nil {
		return err
	}
	totals := ds.Pool().Head(maxNum).Counts()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tID\tQUOTA0\tQUOTA1\tCLASS0\tCLASS1")
	for _, a := range plan {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n", a.Client, a.ClientID,
			a.Quota.Class0, a.Quota.Class1, a.Window(candidate.Class0), a.Window(candidate.Class1))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "format %s for %d candidates\n", allocator.AutoFormat(maxNum), totals.Sum())
	for _, l := range federation.Oversubscribed(cfg, totals) {
		fmt.Fprintf(stdout, "warning: class %s quotas exceed the candidates available\n", l)
	}
	if n := allocator.AuditPlan(plan, totals).Revisits(); n > 0 {
		fmt.Fprintf(stdout, "warning: %d candidates would be assigned more than once\n", n)
	}
	return nil
}
