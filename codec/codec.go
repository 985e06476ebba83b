// Package codec encodes the allocation manifest.
//
// The manifest records the codec name it was written with, so a reader can
// pick the matching codec with ByName.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in codec names.
func Names() []string { return []string{"json", "go-json"} }

// MustMarshal panics if v cannot be encoded. Intended for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// Default is used when no codec is configured.
var Default Codec = GoJSON{}
