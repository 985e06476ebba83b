package candidate

import (
	"fmt"

	"github.com/hupe1980/nodulefed/coord"
)

// Label is the binary class of a candidate.
type Label uint8

const (
	// Class0 marks a candidate that is not a nodule.
	Class0 Label = 0
	// Class1 marks a confirmed nodule.
	Class1 Label = 1
)

// NumClasses is the number of candidate classes.
const NumClasses = 2

// Labels lists every class in index order.
var Labels = [NumClasses]Label{Class0, Class1}

func (l Label) String() string {
	return fmt.Sprintf("%d", uint8(l))
}

// Valid reports whether l is Class0 or Class1.
func (l Label) Valid() bool { return l == Class0 || l == Class1 }

// Record is one row of the candidate list.
type Record struct {
	SeriesID string
	World    coord.WorldCoordinate
	Label    Label
}

// Annotation is one row of the ground-truth nodule list.
type Annotation struct {
	SeriesID   string
	World      coord.WorldCoordinate
	DiameterMM float64
}

// Totals holds the per-class candidate counts of a pool.
type Totals struct {
	Class0 int `json:"class0"`
	Class1 int `json:"class1"`
}

// Of returns the count for label l.
func (t Totals) Of(l Label) int {
	if l == Class1 {
		return t.Class1
	}
	return t.Class0
}

// Sum returns the number of candidates across both classes.
func (t Totals) Sum() int { return t.Class0 + t.Class1 }
