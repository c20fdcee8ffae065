// Package stream implements the data-channel reader: a persistent byte-stream
// connection to the sensor daemon, keyed by session ID, that delivers raw
// measurement frames.
//
// The daemon writes frames continuously once the session is running. Reader
// buffers incoming bytes in the background and notifies a subscriber whenever
// new bytes arrive; frame decoding is owned by per-sensor-type decoders, which
// pull exact-size chunks with Read.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sensord-io/go-sensord/logger"
)

const (
	// handshakeAccepted is the ack byte the daemon sends when it accepts the
	// session handshake.
	handshakeAccepted byte = 1

	// readChunkSize is the size of the scratch buffer for socket reads.
	readChunkSize = 4096
)

// Sentinel errors for the data channel.
var (
	// ErrHandshakeRejected indicates the daemon refused the session handshake.
	ErrHandshakeRejected = errors.New("stream: session handshake rejected")

	// ErrClosed indicates the reader has been closed.
	ErrClosed = errors.New("stream: reader closed")
)

// Reader is a data-channel connection for one session.
//
// A background goroutine drains the socket into an internal buffer. Available
// reports the number of buffered bytes, Read consumes an exact-size chunk,
// and Subscribe registers a readability callback fired after new bytes arrive.
type Reader struct {
	conn   net.Conn
	logger logger.Logger

	mu     sync.Mutex
	buf    []byte
	notify func()

	closed   atomic.Bool
	readDone chan struct{}
}

// DialOption customizes Dial.
type DialOption func(*dialOptions)

type dialOptions struct {
	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	logger           logger.Logger
}

// WithConnectTimeout sets the socket connect timeout. Defaults to 3 seconds.
func WithConnectTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.connectTimeout = d }
}

// WithHandshakeTimeout sets the session handshake timeout. Defaults to 3 seconds.
func WithHandshakeTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.handshakeTimeout = d }
}

// WithLogger sets the logger instance for the reader.
func WithLogger(l logger.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

// Dial connects to the daemon's data socket and performs the session
// handshake: it writes the 4-byte big-endian session ID and expects a 1-byte
// ack. On success the returned Reader is buffering in the background.
func Dial(network, address string, sessionID int32, opts ...DialOption) (*Reader, error) {
	o := &dialOptions{
		connectTimeout:   3 * time.Second,
		handshakeTimeout: 3 * time.Second,
		logger:           logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	conn, err := net.DialTimeout(network, address, o.connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("stream: connect data socket: %w", err)
	}

	if err := handshake(conn, sessionID, o.handshakeTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return NewReader(conn, o.logger), nil
}

// handshake identifies the session to the daemon on a fresh data connection.
func handshake(conn net.Conn, sessionID int32, timeout time.Duration) error {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("stream: set handshake deadline: %w", err)
	}

	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(sessionID))
	if _, err := conn.Write(idBuf[:]); err != nil {
		return fmt.Errorf("stream: write session id: %w", err)
	}

	var ack [1]byte
	if _, err := io.ReadFull(conn, ack[:]); err != nil {
		return fmt.Errorf("stream: read handshake ack: %w", err)
	}
	if ack[0] != handshakeAccepted {
		return ErrHandshakeRejected
	}

	return conn.SetDeadline(time.Time{})
}

// NewReader wraps an already-connected data socket. Dial is the normal entry
// point; NewReader exists so tests can drive a reader over an in-memory pipe.
func NewReader(conn net.Conn, l logger.Logger) *Reader {
	r := &Reader{
		conn:     conn,
		logger:   l,
		readDone: make(chan struct{}),
	}

	go r.readTask()

	return r
}

// Available returns the number of bytes currently buffered.
func (r *Reader) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.buf)
}

// Read fills p from the buffer. It returns false without consuming anything
// when fewer than len(p) bytes are buffered; the caller should wait for the
// next readability notification and retry.
func (r *Reader) Read(p []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) < len(p) {
		return false
	}

	copy(p, r.buf[:len(p)])
	r.buf = r.buf[len(p):]

	return true
}

// Subscribe registers fn as the readability callback. It is invoked from the
// reader's background goroutine after new bytes have been buffered. If bytes
// are already pending, fn is fired once immediately (asynchronously), so a
// subscriber never misses data buffered before it attached.
//
// Only one subscriber is supported; a later Subscribe replaces the callback.
func (r *Reader) Subscribe(fn func()) {
	r.mu.Lock()
	r.notify = fn
	pending := len(r.buf) > 0
	r.mu.Unlock()

	if pending && fn != nil {
		go fn()
	}
}

// Unsubscribe removes the readability callback.
func (r *Reader) Unsubscribe() {
	r.mu.Lock()
	r.notify = nil
	r.mu.Unlock()
}

// Close tears down the data connection and stops the background reader.
// It is idempotent.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	err := r.conn.Close()
	<-r.readDone

	if err != nil {
		return fmt.Errorf("stream: close data socket: %w", err)
	}

	return nil
}

// readTask drains the socket into the internal buffer and fires the
// readability callback outside the buffer lock.
func (r *Reader) readTask() {
	defer close(r.readDone)

	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.conn.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf = append(r.buf, chunk[:n]...)
			fn := r.notify
			r.mu.Unlock()

			if fn != nil {
				fn()
			}
		}

		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && !strings.Contains(err.Error(), "connection reset by peer") {
				r.logger.Error("data channel read failed", "method", "readTask", "error", err)
			}

			return
		}
	}
}
