package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnConfigDefaults(t *testing.T) {
	cfg, err := NewConnConfig("/run/sensord/control.sock")
	require.NoError(t, err)

	assert.Equal(t, "unix", cfg.Network())
	assert.Equal(t, "/run/sensord/control.sock", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.ReplyTimeout())
	assert.NotNil(t, cfg.Logger())
}

func TestNewConnConfigOptions(t *testing.T) {
	cfg, err := NewConnConfig("127.0.0.1:8045",
		WithNetwork("tcp"),
		WithConnectTimeout(2*time.Second),
		WithSendTimeout(3*time.Second),
		WithReplyTimeout(30*time.Second),
		WithCloseTimeout(2*time.Second),
		WithSenderQueueSize(100),
	)
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Network())
	assert.Equal(t, "127.0.0.1:8045", cfg.Address())
	assert.Equal(t, 30*time.Second, cfg.ReplyTimeout())
}

func TestNewConnConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
		opts    []ConnOption
	}{
		{name: "empty address", address: ""},
		{name: "bad network", address: "a", opts: []ConnOption{WithNetwork("udp")}},
		{name: "connect timeout too small", address: "a", opts: []ConnOption{WithConnectTimeout(time.Millisecond)}},
		{name: "connect timeout too large", address: "a", opts: []ConnOption{WithConnectTimeout(time.Hour)}},
		{name: "send timeout out of range", address: "a", opts: []ConnOption{WithSendTimeout(0)}},
		{name: "reply timeout out of range", address: "a", opts: []ConnOption{WithReplyTimeout(500 * time.Millisecond)}},
		{name: "close timeout out of range", address: "a", opts: []ConnOption{WithCloseTimeout(time.Minute)}},
		{name: "queue size zero", address: "a", opts: []ConnOption{WithSenderQueueSize(0)}},
		{name: "queue size too large", address: "a", opts: []ConnOption{WithSenderQueueSize(10000)}},
		{name: "nil logger", address: "a", opts: []ConnOption{WithLogger(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConnConfig(tt.address, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestNewConnNilConfig(t *testing.T) {
	_, err := NewConn(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConnConfigNil)
}
