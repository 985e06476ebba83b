package codec

import (
	"bytes"

	gojson "github.com/goccy/go-json"
)

// GoJSON is an indented JSON codec backed by github.com/goccy/go-json.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.MarshalIndent(v, "", "  ") }

// Unmarshal rejects unknown fields so a manifest from a newer writer is not
// silently truncated.
func (GoJSON) Unmarshal(data []byte, v any) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }

// Append encodes the value and appends it to dst.
func (GoJSON) Append(dst []byte, v any) ([]byte, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}
