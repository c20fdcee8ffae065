package accel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensord-io/go-sensord/ipc"
	"github.com/sensord-io/go-sensord/sensor"
)

type stubCaller struct {
	calls []string
}

func (c *stubCaller) Call(member string, args ...any) (ipc.Result, error) {
	c.calls = append(c.calls, member)
	return ipc.Result{}, nil
}

func (c *stubCaller) Property(name string) (ipc.Result, error) {
	return ipc.Result{}, nil
}

type memStream struct {
	buf    []byte
	notify func()
}

func (s *memStream) Available() int { return len(s.buf) }

func (s *memStream) Read(p []byte) bool {
	if len(s.buf) < len(p) {
		return false
	}
	copy(p, s.buf[:len(p)])
	s.buf = s.buf[len(p):]
	return true
}

func (s *memStream) Subscribe(fn func()) { s.notify = fn }
func (s *memStream) Unsubscribe()        { s.notify = nil }
func (s *memStream) Close() error        { return nil }

func (s *memStream) push(data []byte) {
	s.buf = append(s.buf, data...)
	if s.notify != nil {
		s.notify()
	}
}

func encodeTestFrame(f Frame) []byte {
	b := make([]byte, frameSize)
	binary.LittleEndian.PutUint64(b[0:8], f.Timestamp)
	binary.LittleEndian.PutUint32(b[8:12], uint32(f.X))
	binary.LittleEndian.PutUint32(b[12:16], uint32(f.Y))
	binary.LittleEndian.PutUint32(b[16:20], uint32(f.Z))
	return b
}

func TestDecodeFrame(t *testing.T) {
	want := Frame{Timestamp: 1234567890, X: -981, Y: 12, Z: 980}
	got := decodeFrame(encodeTestFrame(want))
	assert.Equal(t, want, got)
}

func TestChannelDeliversFrames(t *testing.T) {
	caller := &stubCaller{}
	stream := &memStream{}
	opener := func(sessionID int32) (sensor.DataStream, error) { return stream, nil }

	var got []Frame
	ch := New(caller, nil, opener, 5, func(f Frame) { got = append(got, f) })
	require.NoError(t, ch.Start())

	frames := []Frame{
		{Timestamp: 100, X: 1, Y: 2, Z: 3},
		{Timestamp: 200, X: -4, Y: -5, Z: -6},
	}
	var wire []byte
	for _, f := range frames {
		wire = append(wire, encodeTestFrame(f)...)
	}

	// Deliver the second frame split across two notifications.
	stream.push(wire[:frameSize+7])
	require.Len(t, got, 1)
	assert.Equal(t, frames[0], got[0])

	stream.push(wire[frameSize+7:])
	require.Len(t, got, 2)
	assert.Equal(t, frames[1], got[1])
}

func TestChannelPartialFrameSetsNoError(t *testing.T) {
	caller := &stubCaller{}
	stream := &memStream{}
	opener := func(sessionID int32) (sensor.DataStream, error) { return stream, nil }

	ch := New(caller, nil, opener, 5, nil)
	require.NoError(t, ch.Start())

	stream.push(make([]byte, frameSize-1))
	assert.Equal(t, frameSize-1, stream.Available(),
		"a partial frame must stay buffered until completed")
	assert.Equal(t, sensor.NoError, ch.ErrorCode())
}
