package coord

import (
	"fmt"
	"math"
)

// Axis identifies one of the three spatial axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// WorldCoordinate is a point in scanner space, in millimetres.
type WorldCoordinate struct {
	X, Y, Z float64
}

// At returns the component along the given axis.
func (w WorldCoordinate) At(a Axis) float64 {
	switch a {
	case AxisX:
		return w.X
	case AxisY:
		return w.Y
	default:
		return w.Z
	}
}

func (w WorldCoordinate) String() string {
	return fmt.Sprintf("(%g, %g, %g)", w.X, w.Y, w.Z)
}

// Spacing is the per-axis voxel size in millimetres.
type Spacing struct {
	X, Y, Z float64
}

// At returns the spacing along the given axis.
func (s Spacing) At(a Axis) float64 {
	switch a {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	default:
		return s.Z
	}
}

// Validate reports a *DomainError for the first axis whose spacing is not a
// strictly positive finite number.
func (s Spacing) Validate() error {
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		v := s.At(a)
		if !(v > 0) || math.IsInf(v, 1) {
			return &DomainError{Field: "spacing." + a.String(), Value: v}
		}
	}
	return nil
}

// VolumeIndexCoordinate addresses a voxel: I along x (column), J along y (row)
// and K along z (slice).
type VolumeIndexCoordinate struct {
	I, J, K int
}

func (v VolumeIndexCoordinate) String() string {
	return fmt.Sprintf("[%d, %d, %d]", v.I, v.J, v.K)
}

// ToVolumeIndex maps world into the voxel grid described by origin and spacing.
//
// Each component is floor(|world - origin| / spacing). The quotient is
// truncated, never rounded: an offset of 3.2mm at 1.5mm spacing is index 2.
func ToVolumeIndex(world, origin WorldCoordinate, spacing Spacing) (VolumeIndexCoordinate, error) {
	if err := spacing.Validate(); err != nil {
		return VolumeIndexCoordinate{}, err
	}

	var idx [3]int
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		q := math.Abs(world.At(a)-origin.At(a)) / spacing.At(a)
		if math.IsNaN(q) || q >= math.MaxInt32 {
			return VolumeIndexCoordinate{}, &DomainError{Field: "world." + a.String(), Value: world.At(a)}
		}
		idx[a] = int(q)
	}

	return VolumeIndexCoordinate{I: idx[AxisX], J: idx[AxisY], K: idx[AxisZ]}, nil
}
