package sensor

import "errors"

// Sentinel errors for sensor channels.
var (
	// ErrReleased indicates that the channel has been released; no further
	// control calls are valid.
	ErrReleased = errors.New("sensor: channel released")

	// ErrNoDataChannel indicates that the data channel is not connected.
	ErrNoDataChannel = errors.New("sensor: data channel not connected")

	// ErrShortRead indicates that a frame read could not be satisfied with the
	// bytes currently buffered on the data channel.
	ErrShortRead = errors.New("sensor: short read on data channel")
)

// Error is the client-side error vocabulary for a sensor channel.
//
// Daemon-reported error codes (the "errorCodeInt" property) are mapped into
// the same vocabulary by errorFromInt.
type Error int32

const (
	// NoError indicates no error condition.
	NoError Error = iota
	// ClientSocketError indicates a data-channel connect or disconnect failure.
	ClientSocketError
	// RemoteCallError indicates a control-channel RPC failure.
	RemoteCallError
	// ProtocolError indicates malformed or truncated data-channel traffic.
	ProtocolError
	// SensorNotFound indicates the daemon does not know the requested sensor.
	SensorNotFound
	// HardwareFault indicates the daemon reported a sensor hardware failure.
	HardwareFault
	// UnknownError indicates a daemon-reported code outside the known vocabulary.
	UnknownError
)

func (e Error) String() string {
	switch e {
	case NoError:
		return "no-error"
	case ClientSocketError:
		return "client-socket-error"
	case RemoteCallError:
		return "remote-call-error"
	case ProtocolError:
		return "protocol-error"
	case SensorNotFound:
		return "sensor-not-found"
	case HardwareFault:
		return "hardware-fault"
	default:
		return "unknown-error"
	}
}

// errorFromInt maps a daemon-reported error code into the client vocabulary.
// Codes outside the known range map to UnknownError rather than being dropped.
func errorFromInt(code int64) Error {
	if code >= int64(NoError) && code <= int64(HardwareFault) {
		return Error(code)
	}
	return UnknownError
}
