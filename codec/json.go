package codec

import (
	"encoding/json"
)

// JSON is the standard-library codec. Output is indented for readability.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
