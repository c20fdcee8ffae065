package ipc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the control-channel protocol.
var (
	// ErrConnConfigNil indicates that a nil ConnConfig was provided.
	ErrConnConfigNil = errors.New("ipc: connection config is nil")

	// ErrConnClosed indicates that the connection is closed.
	ErrConnClosed = errors.New("ipc: connection closed")

	// ErrNotConnected indicates that the connection has not been opened yet.
	ErrNotConnected = errors.New("ipc: not connected")

	// ErrSendTimeout indicates that a request could not be queued for sending
	// within the send timeout period.
	ErrSendTimeout = errors.New("ipc: send timeout")

	// ErrReplyTimeout indicates that a reply was not received within the reply
	// timeout period after sending a request.
	ErrReplyTimeout = errors.New("ipc: reply timeout")

	// ErrMessageTooLarge indicates that a framed message exceeds MaxMessageSize.
	ErrMessageTooLarge = errors.New("ipc: message exceeds maximum size")

	// ErrZeroLengthMessage indicates a framed message with a zero-length body.
	ErrZeroLengthMessage = errors.New("ipc: zero-length message")
)

// CallError is returned when the daemon replies to a request with a non-OK
// status. It is the RPC mechanism's own error channel; it is never merged
// into a sensor channel's local error state automatically.
type CallError struct {
	Status  Status
	Member  string
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ipc: call %q failed with status %s", e.Member, e.Status)
	}
	return fmt.Sprintf("ipc: call %q failed with status %s: %s", e.Member, e.Status, e.Message)
}
