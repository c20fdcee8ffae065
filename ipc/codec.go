package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxMessageSize bounds the body of a single framed control-channel message.
// Control traffic is small; anything larger indicates a corrupt length prefix.
const MaxMessageSize = 1 << 20

// encMode is the CBOR encoder mode for control-channel messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode, lenient for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("ipc: failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("ipc: failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes using the deterministic encoder mode.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value using the lenient decoder mode.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeRequest encodes a request into a framed message: a 4-byte big-endian
// body length followed by the CBOR body.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ipc: encode request: %w", err)
	}

	framed := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(framed, uint32(len(body)))
	copy(framed[4:], body)

	return framed, nil
}

// DecodeResponse decodes a CBOR response body.
func DecodeResponse(body []byte) (*Response, error) {
	var rsp Response
	if err := Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("ipc: decode response: %w", err)
	}
	return &rsp, nil
}

// ReadFrame reads one length-prefixed message body from r.
//
// lenBuf must be a 4-byte scratch buffer reused across calls to avoid
// per-message allocations. It is overwritten on each call.
func ReadFrame(r io.Reader, lenBuf []byte) ([]byte, error) {
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}

	bodyLen := binary.BigEndian.Uint32(lenBuf)
	if bodyLen == 0 {
		return nil, ErrZeroLengthMessage
	}
	if bodyLen > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return body, nil
}
