package federation

import (
	"fmt"
	"strings"

	"github.com/hupe1980/nodulefed/candidate"
)

// ExhaustionSlack is subtracted from a class list's length when clamping the
// cursor under ClampLastIndex. With a slack of one an exhausted cursor parks
// on the last index, so every later client with a non-zero quota receives
// that last candidate again.
const ExhaustionSlack = 1

// ClampMode selects how the cursor is clamped once a class list is exhausted.
type ClampMode int

const (
	// ClampLastIndex clamps to len-ExhaustionSlack. Default.
	ClampLastIndex ClampMode = iota
	// ClampLength clamps to len; exhausted lists yield empty windows.
	ClampLength
)

func (m ClampMode) String() string {
	switch m {
	case ClampLastIndex:
		return "last-index"
	case ClampLength:
		return "length"
	default:
		return fmt.Sprintf("ClampMode(%d)", int(m))
	}
}

// ParseClampMode parses the String form of a ClampMode.
func ParseClampMode(s string) (ClampMode, error) {
	switch strings.ToLower(s) {
	case "", "last-index":
		return ClampLastIndex, nil
	case "length":
		return ClampLength, nil
	}
	return 0, fmt.Errorf("unknown clamp mode %q", s)
}

// Window is the half-open index range [Start, End) of one class list.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the window.
func (w Window) Len() int { return max(0, w.End-w.Start) }

func (w Window) String() string { return fmt.Sprintf("[%d,%d)", w.Start, w.End) }

// Cursor holds the next unallocated offset per class.
type Cursor struct {
	Class0 int `json:"class0"`
	Class1 int `json:"class1"`
}

// Of returns the offset for label l.
func (c Cursor) Of(l candidate.Label) int {
	if l == candidate.Class1 {
		return c.Class1
	}
	return c.Class0
}

func (c Cursor) with(l candidate.Label, off int) Cursor {
	if l == candidate.Class1 {
		c.Class1 = off
	} else {
		c.Class0 = off
	}
	return c
}

// Window returns the window of n indices starting at the cursor for a list
// of the given length.
func (c Cursor) Window(l candidate.Label, n, length int) Window {
	start := c.Of(l)
	return Window{Start: start, End: max(start, min(start+n, length))}
}

// Advance moves the class-l offset forward by n, clamped per mode. The
// result is never negative.
func (c Cursor) Advance(l candidate.Label, n, length int, mode ClampMode) Cursor {
	limit := length
	if mode == ClampLastIndex {
		limit = length - ExhaustionSlack
	}
	return c.with(l, max(0, min(c.Of(l)+n, limit)))
}

// Assignment is one client's slice of the candidate lists.
type Assignment struct {
	Client   int                          `json:"client"`
	ClientID string                       `json:"clientId"`
	Quota    Quota                        `json:"quota"`
	Windows  [candidate.NumClasses]Window `json:"windows"`

	// Cursor is the cursor after this client.
	Cursor Cursor `json:"cursor"`
}

// Window returns the window of class l.
func (a Assignment) Window(l candidate.Label) Window { return a.Windows[l] }

// Plan validates cfg and folds a cursor over its rows in order, returning
// one Assignment per client. No client sees a window from a cursor that has
// not yet been advanced past the previous client.
func Plan(cfg Config, totals candidate.Totals, mode ClampMode) ([]Assignment, error) {
	if err := Validate(cfg, totals); err != nil {
		return nil, err
	}

	out := make([]Assignment, 0, len(cfg.Rows))
	var cur Cursor
	for c, row := range cfg.Rows {
		q := ClientQuota(row, totals)
		a := Assignment{Client: c, ClientID: row.ClientID, Quota: q}
		for _, l := range candidate.Labels {
			a.Windows[l] = cur.Window(l, q.Of(l), totals.Of(l))
			cur = cur.Advance(l, q.Of(l), totals.Of(l), mode)
		}
		a.Cursor = cur
		out = append(out, a)
	}
	return out, nil
}
