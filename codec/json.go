package codec

import "encoding/json"

// JSON is the default codec. The zero value is ready to use.
type JSON struct{}

var _ Codec = JSON{}

func (JSON) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, ptr any) error { return json.Unmarshal(b, ptr) }
