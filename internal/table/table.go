// Package table reads comma-separated sources row by row with strict shape
// checks. Callers convert the structural [Error] into their own typed errors.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrColumnCount is wrapped by an Error when a row has the wrong number of fields.
var ErrColumnCount = errors.New("wrong number of columns")

// Error locates a structural failure. Line is 1-based and counts the header.
type Error struct {
	Line   int
	Column int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures Read.
type Options struct {
	// Columns is the exact field count of every row, header included.
	// Zero disables the check.
	Columns int
	// Header skips the first row after validating its width.
	Header bool
}

// Read calls fn for every data row with its 1-based line number. Fields are
// trimmed of surrounding whitespace. Errors returned by fn stop the read and
// are returned unchanged; blank lines are ignored.
func Read(r io.Reader, opts Options, fn func(line int, fields []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return &Error{Line: pe.Line, Column: pe.Column - 1, Err: pe.Err}
			}
			return err
		}
		line, _ := cr.FieldPos(0)

		if opts.Columns > 0 && len(rec) != opts.Columns {
			return &Error{
				Line:   line,
				Column: -1,
				Err:    fmt.Errorf("%w: want %d, got %d", ErrColumnCount, opts.Columns, len(rec)),
			}
		}

		if first && opts.Header {
			first = false
			continue
		}
		first = false

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}
