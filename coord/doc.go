// Package coord converts scanner-space coordinates into voxel indices.
//
// Annotation files describe nodule candidates in millimetres relative to the
// scanner. A volume places its first voxel at an origin and samples space at a
// fixed spacing per axis. [ToVolumeIndex] combines the two:
//
//	idx, err := coord.ToVolumeIndex(
//	    coord.WorldCoordinate{X: -56.08, Y: -67.85, Z: -311.92},
//	    vol.Origin,
//	    vol.Spacing,
//	)
//
// The fractional part of every axis is discarded. Downstream consumers compare
// patches byte-for-byte with reference output, so the truncation is part of
// the contract.
package coord
