package candidate

import "slices"

// Pool is an immutable, ordered collection of candidates and annotations.
// Every view returned by a Pool preserves source order.
type Pool struct {
	candidates  []Record
	annotations []Annotation
}

// NewPool builds a pool from already parsed records. The slices are copied.
func NewPool(candidates []Record, annotations []Annotation) *Pool {
	return &Pool{
		candidates:  slices.Clone(candidates),
		annotations: slices.Clone(annotations),
	}
}

// Len returns the number of candidates.
func (p *Pool) Len() int { return len(p.candidates) }

// Candidates returns a copy of the candidate list in source order.
func (p *Pool) Candidates() []Record { return slices.Clone(p.candidates) }

// Annotations returns a copy of the annotation list in source order.
func (p *Pool) Annotations() []Annotation { return slices.Clone(p.annotations) }

// AnnotationsFor returns the annotations of one series in source order.
func (p *Pool) AnnotationsFor(seriesID string) []Annotation {
	var out []Annotation
	for _, a := range p.annotations {
		if a.SeriesID == seriesID {
			out = append(out, a)
		}
	}
	return out
}

// SeriesIDs returns the distinct series referenced by candidates, in order of
// first appearance.
func (p *Pool) SeriesIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range p.candidates {
		if _, ok := seen[c.SeriesID]; ok {
			continue
		}
		seen[c.SeriesID] = struct{}{}
		ids = append(ids, c.SeriesID)
	}
	return ids
}

// Counts returns the number of candidates per class.
func (p *Pool) Counts() Totals {
	var t Totals
	for _, c := range p.candidates {
		if c.Label == Class1 {
			t.Class1++
		} else {
			t.Class0++
		}
	}
	return t
}

// SplitByClass partitions the candidates in a single pass. Both lists keep
// the relative order of the source.
func (p *Pool) SplitByClass() (class1, class0 []Record) {
	for _, c := range p.candidates {
		if c.Label == Class1 {
			class1 = append(class1, c)
		} else {
			class0 = append(class0, c)
		}
	}
	return class1, class0
}

// Capped returns a pool holding at most class0Max class-0 and class1Max
// class-1 candidates, taken from the front of the list without reordering.
// A negative limit leaves that class uncapped. Annotations are kept as is.
func (p *Pool) Capped(class0Max, class1Max int) *Pool {
	out := &Pool{annotations: p.annotations}
	var n0, n1 int
	for _, c := range p.candidates {
		switch c.Label {
		case Class1:
			if class1Max >= 0 && n1 >= class1Max {
				continue
			}
			n1++
		default:
			if class0Max >= 0 && n0 >= class0Max {
				continue
			}
			n0++
		}
		out.candidates = append(out.candidates, c)
	}
	return out
}

// Head returns a pool restricted to the first n candidate rows regardless of
// class. A negative n, or one beyond the list, keeps every row.
func (p *Pool) Head(n int) *Pool {
	if n < 0 || n >= len(p.candidates) {
		return &Pool{candidates: p.candidates, annotations: p.annotations}
	}
	return &Pool{candidates: p.candidates[:n:n], annotations: p.annotations}
}
