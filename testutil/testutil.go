package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/volume"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Volume returns a volume of the given size with unit spacing, origin 0 and
// voxels drawn uniformly from the CT range [-1000, 1000].
func (r *RNG) Volume(id string, size volume.Size) *volume.Volume {
	r.mu.Lock()
	vox := make([]int16, size.Voxels())
	for i := range vox {
		vox[i] = int16(r.rand.Intn(2001) - 1000)
	}
	r.mu.Unlock()
	return mustVolume(id, coord.WorldCoordinate{}, coord.Spacing{X: 1, Y: 1, Z: 1}, size, vox)
}

// Candidates returns n candidates centred on random voxels of vols. Each is
// Class1 with probability positiveRate.
func (r *RNG) Candidates(vols []*volume.Volume, n int, positiveRate float64) []candidate.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]candidate.Record, n)
	for i := range out {
		v := vols[r.rand.Intn(len(vols))]
		label := candidate.Class0
		if r.rand.Float64() < positiveRate {
			label = candidate.Class1
		}
		out[i] = candidate.Record{
			SeriesID: v.SeriesID,
			World:    WorldAt(v, r.rand.Intn(v.Size.X), r.rand.Intn(v.Size.Y), r.rand.Intn(v.Size.Z)),
			Label:    label,
		}
	}
	return out
}

// Ramp returns a unit-spacing volume at origin 0 whose voxel (x, y, z) holds
// RampValue(x, y, z). Patches cut from it can be checked pixel by pixel.
func Ramp(id string, size volume.Size) *volume.Volume {
	vox := make([]int16, 0, size.Voxels())
	for z := range size.Z {
		for y := range size.Y {
			for x := range size.X {
				vox = append(vox, RampValue(x, y, z))
			}
		}
	}
	return mustVolume(id, coord.WorldCoordinate{}, coord.Spacing{X: 1, Y: 1, Z: 1}, size, vox)
}

// RampValue is the voxel value Ramp stores at (x, y, z).
func RampValue(x, y, z int) int16 {
	return int16((x + 100*y + 7*z) % 32000)
}

// WorldAt returns the world coordinate at the centre of voxel (i, j, k).
func WorldAt(v *volume.Volume, i, j, k int) coord.WorldCoordinate {
	return coord.WorldCoordinate{
		X: v.Origin.X + (float64(i)+0.5)*v.Spacing.X,
		Y: v.Origin.Y + (float64(j)+0.5)*v.Spacing.Y,
		Z: v.Origin.Z + (float64(k)+0.5)*v.Spacing.Z,
	}
}

// Records builds n candidates of one series and label, all at world.
func Records(seriesID string, world coord.WorldCoordinate, label candidate.Label, n int) []candidate.Record {
	out := make([]candidate.Record, n)
	for i := range out {
		out[i] = candidate.Record{SeriesID: seriesID, World: world, Label: label}
	}
	return out
}

// CandidatesCSV renders records in the candidates.csv layout.
func CandidatesCSV(recs []candidate.Record) string {
	var b strings.Builder
	b.WriteString("seriesuid,coordX,coordY,coordZ,class\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%d\n", r.SeriesID, r.World.X, r.World.Y, r.World.Z, r.Label)
	}
	return b.String()
}

// AnnotationsCSV renders one annotation per Class1 record with the given diameter.
func AnnotationsCSV(recs []candidate.Record, diameterMM float64) string {
	var b strings.Builder
	b.WriteString("seriesuid,coordX,coordY,coordZ,diameter_mm\n")
	for _, r := range recs {
		if r.Label == candidate.Class1 {
			fmt.Fprintf(&b, "%s,%g,%g,%g,%g\n", r.SeriesID, r.World.X, r.World.Y, r.World.Z, diameterMM)
		}
	}
	return b.String()
}

// ConfigRow is one row of a federation config fixture.
type ConfigRow struct {
	ClientID       string
	Class0, Class1 float64
}

// ConfigCSV renders rows in the federation config layout.
func ConfigCSV(rows ...ConfigRow) string {
	var b strings.Builder
	b.WriteString("clientId,class0Ratio,class1Ratio\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%g,%g\n", r.ClientID, r.Class0, r.Class1)
	}
	return b.String()
}

// WriteDataset lays out vols and recs as a LUNA16 directory under dir:
// CSVFILES/{candidates,annotations,seriesuids}.csv and rawData/{id}.mhd.
func WriteDataset(dir string, vols []*volume.Volume, recs []candidate.Record) error {
	csvDir := filepath.Join(dir, "CSVFILES")
	if err := os.MkdirAll(csvDir, 0o755); err != nil {
		return err
	}

	ids := make([]string, len(vols))
	for i, v := range vols {
		ids[i] = v.SeriesID
		if _, err := volume.WriteMetaImage(filepath.Join(dir, "rawData"), v, volume.WriteOptions{}); err != nil {
			return err
		}
	}

	files := map[string]string{
		"candidates.csv":  CandidatesCSV(recs),
		"annotations.csv": AnnotationsCSV(recs, 6),
		"seriesuids.csv":  strings.Join(ids, "\n") + "\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(csvDir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func mustVolume(id string, origin coord.WorldCoordinate, spacing coord.Spacing, size volume.Size, vox []int16) *volume.Volume {
	v, err := volume.New(id, origin, spacing, size, vox)
	if err != nil {
		panic(fmt.Errorf("testutil: %w", err))
	}
	return v
}
