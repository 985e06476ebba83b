// Package testutil provides deterministic fixtures for nodulefed tests.
//
// This package is intended for use in tests only.
//
// # Synthetic Volumes
//
//	v := testutil.Ramp("series-a", volume.Size{X: 64, Y: 64, Z: 8})
//	rng := testutil.NewRNG(42)
//	noisy := rng.Volume("series-b", volume.Size{X: 32, Y: 32, Z: 4})
//
// # Candidate Lists and Datasets
//
//	recs := rng.Candidates([]*volume.Volume{v, noisy}, 50, 0.2)
//	err := testutil.WriteDataset(dir, []*volume.Volume{v, noisy}, recs)
package testutil
