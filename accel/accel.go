// Package accel provides the accelerometer sensor channel.
//
// The daemon streams fixed-size accelerometer frames over the data channel:
// 20 bytes, little-endian, a 64-bit microsecond timestamp followed by the
// three signed 32-bit axis values in milli-G.
package accel

import (
	"encoding/binary"

	"github.com/sensord-io/go-sensord/ipc"
	"github.com/sensord-io/go-sensord/sensor"
)

// Control-channel addressing for the accelerometer interface.
const (
	Path  = "/accelerometersensor"
	Iface = "local.AccelerometerSensor"
)

// frameSize is the wire size of one accelerometer frame.
const frameSize = 20

// Frame is one accelerometer sample.
type Frame struct {
	// Timestamp is the monotonic sample time in microseconds.
	Timestamp uint64
	// X, Y, Z are the axis accelerations in milli-G.
	X int32
	Y int32
	Z int32
}

// Handler receives decoded frames. It is invoked from the drain loop with
// the channel lock held; handlers must not call back into the channel.
type Handler func(Frame)

// Channel is an accelerometer session handle.
type Channel struct {
	*sensor.Channel

	handler Handler
	frame   [frameSize]byte
}

// New creates an accelerometer channel on top of the generic session handle
// machinery. The caller must be bound to Path and Iface.
func New(caller sensor.Caller, registry sensor.Registry, opener sensor.StreamOpener, sessionID int32, handler Handler, opts ...sensor.ChannelOption) *Channel {
	ch := &Channel{handler: handler}
	ch.Channel = sensor.NewChannel(caller, registry, opener, sessionID, opts...)
	ch.Channel.SetDecoder(ch)

	return ch
}

// NewWithManager resolves a session via the sensor manager and returns a
// ready accelerometer channel: it loads the accelerometer plugin, requests a
// session, and binds an interface client on the same connection.
func NewWithManager(conn *ipc.Conn, mgr *ipc.Manager, opener sensor.StreamOpener, handler Handler, opts ...sensor.ChannelOption) (*Channel, error) {
	if _, err := mgr.LoadPlugin("accelerometersensor"); err != nil {
		return nil, err
	}

	sessionID, err := mgr.RequestSensor("accelerometersensor")
	if err != nil {
		return nil, err
	}

	caller := ipc.NewInterfaceClient(conn, Path, Iface)

	return New(caller, mgr, opener, sessionID, handler, opts...), nil
}

// DecodeFrame consumes one frame from the data channel and delivers it to
// the handler. It returns false without consuming anything when a full frame
// is not buffered yet.
func (ch *Channel) DecodeFrame(c *sensor.Channel) bool {
	if !c.Read(ch.frame[:]) {
		return false
	}

	if ch.handler != nil {
		ch.handler(decodeFrame(ch.frame[:]))
	}

	return true
}

func decodeFrame(b []byte) Frame {
	return Frame{
		Timestamp: binary.LittleEndian.Uint64(b[0:8]),
		X:         int32(binary.LittleEndian.Uint32(b[8:12])),
		Y:         int32(binary.LittleEndian.Uint32(b[12:16])),
		Z:         int32(binary.LittleEndian.Uint32(b[16:20])),
	}
}
