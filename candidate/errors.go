package candidate

import "fmt"

// ParseError reports a malformed row in a tabular source. Row is the 1-based
// line number in the source, so the header is row 1.
type ParseError struct {
	Source string
	Row    int
	Column int // 0-based; -1 when the whole row is at fault
	cause  error
}

func (e *ParseError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("%s: row %d, column %d: %v", e.Source, e.Row, e.Column, e.cause)
	}
	return fmt.Sprintf("%s: row %d: %v", e.Source, e.Row, e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

// NewParseError builds a ParseError. Other packages reading tabular input use
// it so every tabular failure has the same shape.
func NewParseError(source string, row, column int, cause error) *ParseError {
	return &ParseError{Source: source, Row: row, Column: column, cause: cause}
}
