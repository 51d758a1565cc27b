package assetram

import (
	"fmt"
)

// StoreError reports a failure of the external provider itself (transport,
// server, closed client). Errors returned by compute are never wrapped.
type StoreError struct {
	Op  string // "get", "set"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("assetram: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CodecError reports that a value could not be encoded for, or decoded from,
// the external backend.
type CodecError struct {
	Key    string
	Decode bool
	Err    error
}

func (e *CodecError) Error() string {
	op := "encode"
	if e.Decode {
		op = "decode"
	}
	return fmt.Sprintf("assetram: %s %q: %v", op, e.Key, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
