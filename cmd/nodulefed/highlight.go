package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/nodulefed"
	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/format"
	"github.com/hupe1980/nodulefed/patch"
)

func runHighlight(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		c       common
		series  string
		world   coord.WorldCoordinate
		border  int
		marker  int
		outPath string
	)
	fs := newFlagSet("highlight", stderr)
	c.register(fs)
	fs.StringVar(&series, "series", "", "series id of the volume")
	fs.Float64Var(&world.X, "x", 0, "world x in mm")
	fs.Float64Var(&world.Y, "y", 0, "world y in mm")
	fs.Float64Var(&world.Z, "z", 0, "world z in mm")
	fs.IntVar(&border, "border", patch.DefaultBorder, "frame width in voxels")
	fs.IntVar(&marker, "marker", int(patch.DefaultMarker), "frame value")
	fs.StringVar(&outPath, "o", "highlight.jpg", "output file; .jpg or .nii")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if series == "" {
		return errors.New("highlight: -series is required")
	}

	ff, err := format.ParseFormat(filepath.Ext(outPath))
	if err != nil {
		return err
	}
	enc, err := format.EncoderFor(ff)
	if err != nil {
		return err
	}

	ds, err := c.open(ctx, stderr, nodulefed.WithHighlight(border, int16(marker)))
	if err != nil {
		return err
	}
	defer ds.Close()

	p, err := ds.Highlight(ctx, series, world)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := enc.Encode(f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d)\n", outPath, p.Width, p.Height)
	return nil
}
