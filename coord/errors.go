package coord

import "fmt"

// DomainError reports a geometric value outside the domain of an operation,
// such as a non-positive spacing or a slice index beyond the volume depth.
type DomainError struct {
	Field string
	Value float64
	cause error
}

// NewDomainError wraps cause with the offending field and value.
func NewDomainError(field string, value float64, cause error) *DomainError {
	return &DomainError{Field: field, Value: value, cause: cause}
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid %s: %g: %v", e.Field, e.Value, e.cause)
	}
	return fmt.Sprintf("invalid %s: %g", e.Field, e.Value)
}

func (e *DomainError) Unwrap() error { return e.cause }
