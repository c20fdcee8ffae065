package stream

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensord-io/go-sensord/logger"
)

func newTestReader(t *testing.T) (*Reader, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	r := NewReader(client, logger.GetLogger())
	t.Cleanup(func() {
		_ = r.Close()
		_ = server.Close()
	})

	return r, server
}

// waitAvailable polls until the background reader has buffered n bytes.
func waitAvailable(t *testing.T, r *Reader, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.Available() >= n
	}, 2*time.Second, time.Millisecond)
}

func TestReaderAvailableAndRead(t *testing.T) {
	r, server := newTestReader(t)

	_, err := server.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	waitAvailable(t, r, 5)

	// A short read consumes nothing.
	big := make([]byte, 8)
	assert.False(t, r.Read(big))
	assert.Equal(t, 5, r.Available())

	p := make([]byte, 3)
	require.True(t, r.Read(p))
	assert.Equal(t, []byte{1, 2, 3}, p)
	assert.Equal(t, 2, r.Available())

	rest := make([]byte, 2)
	require.True(t, r.Read(rest))
	assert.Equal(t, []byte{4, 5}, rest)
	assert.Zero(t, r.Available())
}

func TestReaderSubscribe(t *testing.T) {
	r, server := newTestReader(t)

	notified := make(chan struct{}, 8)
	r.Subscribe(func() { notified <- struct{}{} })

	_, err := server.Write([]byte{9, 9})
	require.NoError(t, err)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("no readability notification after write")
	}
	assert.Equal(t, 2, r.Available())
}

func TestReaderSubscribeWithPendingBytes(t *testing.T) {
	r, server := newTestReader(t)

	_, err := server.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	waitAvailable(t, r, 3)

	// Bytes buffered before the subscriber attached still produce one
	// notification.
	notified := make(chan struct{}, 1)
	r.Subscribe(func() { notified <- struct{}{} })

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("no catch-up notification for pending bytes")
	}
}

func TestReaderUnsubscribe(t *testing.T) {
	r, server := newTestReader(t)

	var mu sync.Mutex
	count := 0
	r.Subscribe(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	_, err := server.Write([]byte{1})
	require.NoError(t, err)
	waitAvailable(t, r, 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count > 0
	}, 2*time.Second, time.Millisecond)

	r.Unsubscribe()
	mu.Lock()
	before := count
	mu.Unlock()

	_, err = server.Write([]byte{2})
	require.NoError(t, err)
	waitAvailable(t, r, 2)

	// Give a stray callback a chance to fire before asserting.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, before, count, "no notifications after unsubscribe")
	mu.Unlock()
}

func TestReaderCloseIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	r := NewReader(client, logger.GetLogger())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestReaderBuffersAfterPeerClose(t *testing.T) {
	r, server := newTestReader(t)

	_, err := server.Write([]byte{7, 7, 7, 7})
	require.NoError(t, err)
	waitAvailable(t, r, 4)
	require.NoError(t, server.Close())

	// Buffered bytes stay readable after the peer is gone.
	p := make([]byte, 4)
	assert.True(t, r.Read(p))
}

func TestDialHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	const sessionID int32 = 42

	accept := func(ack byte, payload []byte) {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var idBuf [4]byte
		if _, err := conn.Read(idBuf[:]); err != nil {
			return
		}
		if int32(binary.BigEndian.Uint32(idBuf[:])) != sessionID {
			return
		}
		if _, err := conn.Write([]byte{ack}); err != nil {
			return
		}
		if len(payload) > 0 {
			_, _ = conn.Write(payload)
		}
		// hold the connection open until the client is done
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	}

	t.Run("accepted", func(t *testing.T) {
		go accept(handshakeAccepted, []byte{1, 2, 3})

		r, err := Dial("tcp", ln.Addr().String(), sessionID,
			WithConnectTimeout(time.Second),
			WithHandshakeTimeout(time.Second),
		)
		require.NoError(t, err)
		defer r.Close()

		waitAvailable(t, r, 3)
		p := make([]byte, 3)
		assert.True(t, r.Read(p))
		assert.Equal(t, []byte{1, 2, 3}, p)
	})

	t.Run("rejected", func(t *testing.T) {
		go accept(0, nil)

		_, err := Dial("tcp", ln.Addr().String(), sessionID,
			WithConnectTimeout(time.Second),
			WithHandshakeTimeout(time.Second),
		)
		assert.ErrorIs(t, err, ErrHandshakeRejected)
	})
}

func TestDialConnectFailure(t *testing.T) {
	_, err := Dial("tcp", "127.0.0.1:1", 1, WithConnectTimeout(time.Second))
	assert.Error(t, err)
}
