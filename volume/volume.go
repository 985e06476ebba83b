package volume

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nodulefed/coord"
)

// ErrSliceOutOfRange is the cause of a DomainError for a depth index outside
// the volume.
var ErrSliceOutOfRange = errors.New("slice index out of range")

// Size is the voxel grid extent along each axis.
type Size struct {
	X, Y, Z int
}

// Voxels returns X*Y*Z.
func (s Size) Voxels() int { return s.X * s.Y * s.Z }

func (s Size) String() string { return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z) }

// Volume is a loaded scan. Fields must not be modified after New returns.
type Volume struct {
	SeriesID string
	Origin   coord.WorldCoordinate
	Spacing  coord.Spacing
	Size     Size

	voxels []int16
}

// New builds a Volume that takes ownership of voxels, laid out [z][y][x].
func New(seriesID string, origin coord.WorldCoordinate, spacing coord.Spacing, size Size, voxels []int16) (*Volume, error) {
	if err := spacing.Validate(); err != nil {
		return nil, err
	}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("volume %s: invalid size %s", seriesID, size)
	}
	if len(voxels) != size.Voxels() {
		return nil, fmt.Errorf("volume %s: have %d voxels, size %s needs %d", seriesID, len(voxels), size, size.Voxels())
	}
	return &Volume{
		SeriesID: seriesID,
		Origin:   origin,
		Spacing:  spacing,
		Size:     size,
		voxels:   voxels,
	}, nil
}

// Index maps a world coordinate into this volume's grid.
func (v *Volume) Index(world coord.WorldCoordinate) (coord.VolumeIndexCoordinate, error) {
	return coord.ToVolumeIndex(world, v.Origin, v.Spacing)
}

// At returns the voxel at column i, row j, slice k. It panics when out of range.
func (v *Volume) At(i, j, k int) int16 {
	return v.voxels[(k*v.Size.Y+j)*v.Size.X+i]
}

// Slice returns a read-only view of depth index k.
func (v *Volume) Slice(k int) (Slice, error) {
	if k < 0 || k >= v.Size.Z {
		return Slice{}, coord.NewDomainError("index.k", float64(k), ErrSliceOutOfRange)
	}
	n := v.Size.X * v.Size.Y
	return Slice{width: v.Size.X, height: v.Size.Y, pix: v.voxels[k*n : (k+1)*n : (k+1)*n]}, nil
}

// Bytes approximates the memory held by the volume.
func (v *Volume) Bytes() int64 {
	return int64(len(v.voxels))*2 + int64(len(v.SeriesID)) + 96
}

// Rect is a half-open pixel rectangle [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Dx returns the width, never negative.
func (r Rect) Dx() int { return max(0, r.X1-r.X0) }

// Dy returns the height, never negative.
func (r Rect) Dy() int { return max(0, r.Y1-r.Y0) }

// Empty reports whether the rectangle covers no pixel.
func (r Rect) Empty() bool { return r.Dx() == 0 || r.Dy() == 0 }

// Clip limits r to [0,w) x [0,h). Each side is clamped on its own.
func (r Rect) Clip(w, h int) Rect {
	return Rect{
		X0: min(max(r.X0, 0), w),
		Y0: min(max(r.Y0, 0), h),
		X1: min(max(r.X1, 0), w),
		Y1: min(max(r.Y1, 0), h),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", r.Y0, r.Y1, r.X0, r.X1)
}

// Slice is a read-only view of one axial plane.
type Slice struct {
	width, height int
	pix           []int16
}

func (s Slice) Width() int  { return s.width }
func (s Slice) Height() int { return s.height }

// At returns the pixel at column x, row y.
func (s Slice) At(x, y int) int16 { return s.pix[y*s.width+x] }

// Crop copies the part of r that lies inside the slice.
func (s Slice) Crop(r Rect) *Plane {
	r = r.Clip(s.width, s.height)
	p := NewPlane(r.Dx(), r.Dy())
	for y := 0; y < p.Height; y++ {
		row := (r.Y0+y)*s.width + r.X0
		copy(p.Pix[y*p.Width:(y+1)*p.Width], s.pix[row:row+p.Width])
	}
	return p
}

// Clone copies the whole slice into a mutable Plane.
func (s Slice) Clone() *Plane {
	return s.Crop(Rect{X1: s.width, Y1: s.height})
}

// Plane is a mutable row-major int16 image.
type Plane struct {
	Width, Height int
	Pix           []int16
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane(w, h int) *Plane {
	return &Plane{Width: w, Height: h, Pix: make([]int16, w*h)}
}

func (p *Plane) At(x, y int) int16     { return p.Pix[y*p.Width+x] }
func (p *Plane) Set(x, y int, v int16) { p.Pix[y*p.Width+x] = v }

// Empty reports whether the plane has no pixels.
func (p *Plane) Empty() bool { return p.Width == 0 || p.Height == 0 }

// Fill sets every pixel of r inside the plane to v.
func (p *Plane) Fill(r Rect, v int16) {
	r = r.Clip(p.Width, p.Height)
	for y := r.Y0; y < r.Y1; y++ {
		row := p.Pix[y*p.Width+r.X0 : y*p.Width+r.X1]
		for i := range row {
			row[i] = v
		}
	}
}

// Bounds returns the value range, or (0, 0) for an empty plane.
func (p *Plane) Bounds() (lo, hi int16) {
	if len(p.Pix) == 0 {
		return 0, 0
	}
	lo, hi = p.Pix[0], p.Pix[0]
	for _, v := range p.Pix[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
