package allocator

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nodulefed/candidate"
)

// ErrUnsupportedCompression is returned when compression is requested for a
// per-file format.
var ErrUnsupportedCompression = errors.New("compression requires a stacked format")

// PersistError reports a patch that could not be extracted or written.
// The underlying error can be accessed via errors.Unwrap.
type PersistError struct {
	Client int
	Class  candidate.Label
	// Index is the position within the class list, -1 for a stacked file.
	Index int
	Path  string
	cause error
}

func (e *PersistError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("client %d class %s: write %s: %v", e.Client, e.Class, e.Path, e.cause)
	}
	return fmt.Sprintf("client %d class %s index %d: write %s: %v", e.Client, e.Class, e.Index, e.Path, e.cause)
}

func (e *PersistError) Unwrap() error { return e.cause }
