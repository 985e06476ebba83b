package federation

import (
	"errors"
	"fmt"
)

var (
	// ErrNoClients is returned for a configuration without rows.
	ErrNoClients = errors.New("no clients configured")
	// ErrRatioRange is the cause of a ConfigError for a ratio outside [0,1].
	ErrRatioRange = errors.New("ratio must be within [0,1]")
	// ErrNegativeTotal is the cause of a ConfigError for a negative class total.
	ErrNegativeTotal = errors.New("class total must not be negative")
)

// ConfigError reports a configuration that loaded but fails Validate. Row is
// the 0-based client index, or -1 when the error is not tied to a client.
// Malformed config files are candidate.ParseErrors instead.
type ConfigError struct {
	Row   int
	Field string
	Value string
	cause error
}

func (e *ConfigError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("federation config: %s=%q: %v", e.Field, e.Value, e.cause)
	}
	return fmt.Sprintf("federation config: client %d: %s=%q: %v", e.Row, e.Field, e.Value, e.cause)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// NewConfigError builds a ConfigError.
func NewConfigError(row int, field, value string, cause error) *ConfigError {
	return &ConfigError{Row: row, Field: field, Value: value, cause: cause}
}
