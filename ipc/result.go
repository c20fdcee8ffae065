package ipc

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
)

// ErrEmptyResult indicates that a typed accessor was used on a result with no
// payload, e.g. the reply to a void method.
var ErrEmptyResult = errors.New("ipc: empty result")

// Result wraps the raw CBOR payload of a successful response.
//
// It plays the role of a typed variant: callers either Decode the payload
// into a concrete Go value, or use one of the scalar accessors.
type Result struct {
	raw cbor.RawMessage
}

// NewResult wraps raw CBOR bytes as a Result. Mainly useful in tests.
func NewResult(raw []byte) Result {
	return Result{raw: raw}
}

// IsEmpty reports whether the result carries no payload.
func (r Result) IsEmpty() bool {
	return len(r.raw) == 0
}

// Decode decodes the payload into v.
func (r Result) Decode(v any) error {
	if r.IsEmpty() {
		return ErrEmptyResult
	}
	return Unmarshal(r.raw, v)
}

// Int decodes the payload as a signed integer.
func (r Result) Int() (int64, error) {
	var v int64
	if err := r.Decode(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Uint decodes the payload as an unsigned integer.
func (r Result) Uint() (uint64, error) {
	var v uint64
	if err := r.Decode(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Bool decodes the payload as a boolean.
func (r Result) Bool() (bool, error) {
	var v bool
	if err := r.Decode(&v); err != nil {
		return false, err
	}
	return v, nil
}

// String decodes the payload as a string.
func (r Result) String() (string, error) {
	var v string
	if err := r.Decode(&v); err != nil {
		return "", err
	}
	return v, nil
}
