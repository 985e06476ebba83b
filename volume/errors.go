package volume

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound reports a series without a volume. It is os.ErrNotExist so
// missing files and unknown ids match the same errors.Is check.
var ErrNotFound = os.ErrNotExist

// ErrInvalidSeriesID is returned for ids that would escape the loader's
// directory.
var ErrInvalidSeriesID = errors.New("invalid series id")

// FormatError reports a malformed MetaImage header or payload.
type FormatError struct {
	Path  string
	Field string
	cause error
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("metaimage %s: %v", e.Path, e.cause)
	}
	return fmt.Sprintf("metaimage %s: %s: %v", e.Path, e.Field, e.cause)
}

func (e *FormatError) Unwrap() error { return e.cause }

func formatErr(path, field string, format string, args ...any) *FormatError {
	return &FormatError{Path: path, Field: field, cause: fmt.Errorf(format, args...)}
}
