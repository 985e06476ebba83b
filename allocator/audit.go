package allocator

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/federation"
)

// ClassAudit summarises how the windows of one class cover its list.
type ClassAudit struct {
	// Allocated is the number of distinct indices handed to any client.
	Allocated uint64 `json:"allocated"`
	// Revisited counts window indices already handed to an earlier client.
	Revisited uint64 `json:"revisited"`
	// Unallocated is the number of indices no client received.
	Unallocated uint64 `json:"unallocated"`
}

// Audit holds one ClassAudit per label.
type Audit [candidate.NumClasses]ClassAudit

// Revisits returns the total number of revisited indices.
func (a Audit) Revisits() uint64 {
	var n uint64
	for _, c := range a {
		n += c.Revisited
	}
	return n
}

// AuditPlan checks the windows of plan against totals.
func AuditPlan(plan []federation.Assignment, totals candidate.Totals) Audit {
	var (
		out  Audit
		seen [candidate.NumClasses]*roaring.Bitmap
	)
	for _, l := range candidate.Labels {
		seen[l] = roaring.New()
	}
	for _, a := range plan {
		for _, l := range candidate.Labels {
			w := a.Window(l)
			if w.Len() == 0 {
				continue
			}
			win := roaring.New()
			win.AddRange(uint64(w.Start), uint64(w.End))
			out[l].Revisited += seen[l].AndCardinality(win)
			seen[l].Or(win)
		}
	}
	for _, l := range candidate.Labels {
		out[l].Allocated = seen[l].GetCardinality()
		out[l].Unallocated = uint64(totals.Of(l)) - out[l].Allocated
	}
	return out
}
