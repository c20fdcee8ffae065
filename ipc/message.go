package ipc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Op identifies the kind of a control-channel request.
type Op uint8

const (
	// OpCall invokes a method by name with a positional argument list.
	OpCall Op = 1
	// OpGetProperty reads a named property of the remote interface.
	OpGetProperty Op = 2
)

// IsValid reports whether op is a known request kind.
func (op Op) IsValid() bool {
	return op == OpCall || op == OpGetProperty
}

func (op Op) String() string {
	switch op {
	case OpCall:
		return "call"
	case OpGetProperty:
		return "get-property"
	default:
		return "unknown"
	}
}

// Status is the result code carried by a control-channel response.
type Status uint8

const (
	// StatusOK indicates the request succeeded.
	StatusOK Status = 0
	// StatusError indicates a generic daemon-side failure.
	StatusError Status = 1
	// StatusUnknownMember indicates the method or property name was not
	// recognized by the target interface.
	StatusUnknownMember Status = 2
	// StatusInvalidArgs indicates the argument list did not match the method.
	StatusInvalidArgs Status = 3
)

// IsOK reports whether the status indicates success.
func (s Status) IsOK() bool { return s == StatusOK }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusUnknownMember:
		return "unknown-member"
	case StatusInvalidArgs:
		return "invalid-args"
	default:
		return "unknown"
	}
}

// Request is a control-channel request message.
//
// CBOR encoding (integer keys):
//
//	{
//	  1: id,       // uint32, matched against the response
//	  2: op,       // uint8: 1=call, 2=get-property
//	  3: path,     // object path, e.g. "/SensorManager" or "/accelerometersensor"
//	  4: iface,    // interface name, e.g. "local.AccelerometerSensor"
//	  5: member,   // method or property name
//	  6: args      // positional arguments (absent for property reads)
//	}
type Request struct {
	ID     uint32 `cbor:"1,keyasint"`
	Op     Op     `cbor:"2,keyasint"`
	Path   string `cbor:"3,keyasint"`
	Iface  string `cbor:"4,keyasint"`
	Member string `cbor:"5,keyasint"`
	Args   []any  `cbor:"6,keyasint,omitempty"`
}

// Validate checks the request for protocol violations before encoding.
func (r *Request) Validate() error {
	if !r.Op.IsValid() {
		return fmt.Errorf("ipc: invalid request op: %d", r.Op)
	}
	if r.Member == "" {
		return fmt.Errorf("ipc: empty member name")
	}
	if r.Op == OpGetProperty && len(r.Args) > 0 {
		return fmt.Errorf("ipc: property read %q must not carry arguments", r.Member)
	}
	return nil
}

// Response is a control-channel response message.
//
// CBOR encoding (integer keys):
//
//	{
//	  1: id,       // uint32, matches the request
//	  2: status,   // uint8: 0=ok, otherwise an error code
//	  3: error,    // human-readable error text when status != 0
//	  4: payload   // raw CBOR result value when status == 0
//	}
type Response struct {
	ID      uint32          `cbor:"1,keyasint"`
	Status  Status          `cbor:"2,keyasint"`
	ErrText string          `cbor:"3,keyasint,omitempty"`
	Payload cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// Result returns the response payload wrapped as a decodable Result.
func (r *Response) Result() Result {
	return Result{raw: r.Payload}
}
