package patch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/volume"
)

const (
	DefaultHalfSize       = 30
	DefaultBorder         = 2
	DefaultMarker   int16 = 3000
)

// ErrNegativeSize is the cause of a DomainError for a negative box or border.
var ErrNegativeSize = errors.New("negative size")

// Patch is a crop of one slice around a candidate.
type Patch struct {
	*volume.Plane

	SeriesID string
	Center   coord.VolumeIndexCoordinate
	// Box is the clipped source rectangle within the slice.
	Box volume.Rect
}

// Bounds returns the box of half-size h around center clipped to a w x h slice.
func Bounds(center coord.VolumeIndexCoordinate, half, width, height int) volume.Rect {
	return volume.Rect{
		X0: center.I - half,
		Y0: center.J - half,
		X1: center.I + half,
		Y1: center.J + half,
	}.Clip(width, height)
}

// Extract crops the (2*halfSize)^2 box around world on its slice.
func Extract(v *volume.Volume, world coord.WorldCoordinate, halfSize int) (*Patch, error) {
	if halfSize < 0 {
		return nil, coord.NewDomainError("halfSize", float64(halfSize), ErrNegativeSize)
	}
	idx, s, err := locate(v, world)
	if err != nil {
		return nil, err
	}

	box := Bounds(idx, halfSize, s.Width(), s.Height())
	return &Patch{
		Plane:    s.Crop(box),
		SeriesID: v.SeriesID,
		Center:   idx,
		Box:      box,
	}, nil
}

// Highlight returns a copy of the slice containing world with a frame of
// width border drawn in marker just outside the clipped box. v is not modified.
func Highlight(v *volume.Volume, world coord.WorldCoordinate, boxHalfSize, border int, marker int16) (*volume.Plane, error) {
	if boxHalfSize < 0 {
		return nil, coord.NewDomainError("boxHalfSize", float64(boxHalfSize), ErrNegativeSize)
	}
	if border < 0 {
		return nil, coord.NewDomainError("borderWidth", float64(border), ErrNegativeSize)
	}
	idx, s, err := locate(v, world)
	if err != nil {
		return nil, err
	}

	out := s.Clone()
	i, j, h, b := idx.I, idx.J, boxHalfSize, border
	for _, band := range []volume.Rect{
		{X0: i - h - b, X1: i - h, Y0: j - h, Y1: j + h}, // left
		{X0: i + h, X1: i + h + b, Y0: j - h, Y1: j + h}, // right
		{X0: i - h, X1: i + h, Y0: j - h - b, Y1: j - h}, // top
		{X0: i - h, X1: i + h, Y0: j + h, Y1: j + h + b}, // bottom
	} {
		out.Fill(band, marker)
	}
	return out, nil
}

func locate(v *volume.Volume, world coord.WorldCoordinate) (coord.VolumeIndexCoordinate, volume.Slice, error) {
	idx, err := v.Index(world)
	if err != nil {
		return idx, volume.Slice{}, err
	}
	s, err := v.Slice(idx.K)
	if err != nil {
		return idx, volume.Slice{}, fmt.Errorf("series %s at %s: %w", v.SeriesID, world, err)
	}
	return idx, s, nil
}

// Extractor loads volumes on demand and crops patches from them.
type Extractor struct {
	loader   volume.Loader
	halfSize int
}

// NewExtractor returns an Extractor cropping boxes of the given half-size.
func NewExtractor(loader volume.Loader, halfSize int) *Extractor {
	return &Extractor{loader: loader, halfSize: halfSize}
}

// HalfSize returns the configured half-size.
func (e *Extractor) HalfSize() int { return e.halfSize }

// Extract loads seriesID and crops around world.
func (e *Extractor) Extract(ctx context.Context, seriesID string, world coord.WorldCoordinate) (*Patch, error) {
	v, err := e.loader.Load(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return Extract(v, world, e.halfSize)
}

// Highlight loads seriesID and draws the default frame around world.
func (e *Extractor) Highlight(ctx context.Context, seriesID string, world coord.WorldCoordinate, border int, marker int16) (*volume.Plane, error) {
	v, err := e.loader.Load(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return Highlight(v, world, e.halfSize, border, marker)
}
