// Package codec serializes cached values for the external backend.
//
// A single cache carries values of many types, so codecs work on any and decode
// into a caller-supplied pointer, the same shape as encoding/json.
package codec

// Codec encodes values to []byte for storage and decodes them back into ptr.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, ptr any) error
}
