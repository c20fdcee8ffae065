package sensor

import (
	"github.com/sensord-io/go-sensord/ipc"
)

// Caller is the control-channel dependency of a Channel: blocking method
// calls by name with positional arguments, and typed property reads, against
// one remote interface. Satisfied by *ipc.InterfaceClient.
type Caller interface {
	// Call invokes the named method and blocks until the reply arrives.
	Call(member string, args ...any) (ipc.Result, error)

	// Property reads the named property of the remote interface.
	Property(name string) (ipc.Result, error)
}

// Registry is the session-registry dependency of a Channel, used to release
// the remote session. Satisfied by *ipc.Manager.
type Registry interface {
	// ReleaseInterface releases the session identified by sessionID on the
	// sensor interface identified by interfaceID.
	ReleaseInterface(interfaceID string, sessionID int32) (bool, error)
}

// DataStream is the data-channel dependency of a Channel. Satisfied by
// *stream.Reader.
type DataStream interface {
	// Available returns the number of bytes currently buffered.
	Available() int

	// Read fills p from the buffer, consuming nothing and returning false
	// when fewer than len(p) bytes are buffered.
	Read(p []byte) bool

	// Subscribe registers the readability callback.
	Subscribe(fn func())

	// Unsubscribe removes the readability callback.
	Unsubscribe()

	// Close tears down the data connection.
	Close() error
}

// StreamOpener opens the data channel for a session. It is invoked once
// during channel construction.
type StreamOpener func(sessionID int32) (DataStream, error)

// FrameDecoder consumes measurement frames from a channel's data stream.
// Implementations are sensor-type specific; see the accel package.
type FrameDecoder interface {
	// DecodeFrame attempts to consume exactly one frame from the channel via
	// Channel.Read. It must return false, without consuming anything, when no
	// complete frame is buffered yet.
	DecodeFrame(ch *Channel) bool
}
