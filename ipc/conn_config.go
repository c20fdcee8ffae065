package ipc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sensord-io/go-sensord/logger"
)

// ConnConfig represents the configuration parameters for a control-channel
// connection to the sensor daemon.
type ConnConfig struct {
	mu sync.RWMutex

	// network is the socket family, either "unix" or "tcp".
	// Defaults to "unix".
	network string

	// address is the socket path (unix) or host:port (tcp) of the daemon's
	// control socket.
	address string

	// connectTimeout defines the timeout for establishing the connection.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// sendTimeout defines the timeout for queueing a request to the sender
	// and for the socket write itself.
	// Defaults to 5 seconds.
	sendTimeout time.Duration

	// replyTimeout defines how long a blocking call waits for its response
	// after the request has been queued.
	// Defaults to 10 seconds.
	replyTimeout time.Duration

	// closeTimeout defines the timeout for closing the connection and waiting
	// for its goroutines to terminate.
	// Defaults to 3 seconds.
	closeTimeout time.Duration

	// senderQueueSize defines the size of the sender queue, which buffers
	// requests before they are written to the socket.
	//
	// Defaults to 10.
	senderQueueSize int

	// logger provides a logger instance for control-channel events and errors.
	logger logger.Logger
}

// NewConnConfig creates a control-channel configuration for the daemon socket
// at address, applying the given functional options on top of the defaults.
func NewConnConfig(address string, opts ...ConnOption) (*ConnConfig, error) {
	cfg := &ConnConfig{
		network:         "unix",
		connectTimeout:  3 * time.Second,
		sendTimeout:     5 * time.Second,
		replyTimeout:    10 * time.Second,
		closeTimeout:    3 * time.Second,
		senderQueueSize: 10,
		logger:          logger.GetLogger(),
	}

	if err := withAddress(address).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Network returns the configured socket family.
func (cfg *ConnConfig) Network() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.network
}

// Address returns the configured daemon socket address.
func (cfg *ConnConfig) Address() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.address
}

// ReplyTimeout returns the configured reply timeout.
func (cfg *ConnConfig) ReplyTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.replyTimeout
}

// Logger returns the logger associated with this configuration.
func (cfg *ConnConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// ConnOption represents a functional option for configuring a ConnConfig.
type ConnOption interface {
	apply(*ConnConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnConfig) error
}

func (c *connOptFunc) apply(cfg *ConnConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, f func(*ConnConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

func withAddress(address string) ConnOption {
	return newConnOptFunc("withAddress", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if address == "" {
			return errors.New("ipc: empty daemon address")
		}
		cfg.address = address

		return nil
	})
}

// WithNetwork sets the socket family for the connection, either "unix" or
// "tcp".
//
// The default is "unix".
func WithNetwork(network string) ConnOption {
	return newConnOptFunc("WithNetwork", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if network != "unix" && network != "tcp" {
			return fmt.Errorf("ipc: unsupported network %q", network)
		}
		cfg.network = network

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the connection.
// It should be between 1 and 30 seconds. Defaults to 3 seconds.
func WithConnectTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if timeout < time.Second || timeout > 30*time.Second {
			return errors.New("ipc: connect timeout out of range [1s, 30s]")
		}
		cfg.connectTimeout = timeout

		return nil
	})
}

// WithSendTimeout sets the timeout for queueing and writing a request.
// It should be between 1 and 60 seconds. Defaults to 5 seconds.
func WithSendTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithSendTimeout", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if timeout < time.Second || timeout > 60*time.Second {
			return errors.New("ipc: send timeout out of range [1s, 60s]")
		}
		cfg.sendTimeout = timeout

		return nil
	})
}

// WithReplyTimeout sets how long a blocking call waits for its response.
// It should be between 1 and 120 seconds. Defaults to 10 seconds.
func WithReplyTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithReplyTimeout", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if timeout < time.Second || timeout > 120*time.Second {
			return errors.New("ipc: reply timeout out of range [1s, 120s]")
		}
		cfg.replyTimeout = timeout

		return nil
	})
}

// WithCloseTimeout sets the timeout for closing the connection.
// It should be between 1 and 30 seconds. Defaults to 3 seconds.
func WithCloseTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithCloseTimeout", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if timeout < time.Second || timeout > 30*time.Second {
			return errors.New("ipc: close timeout out of range [1s, 30s]")
		}
		cfg.closeTimeout = timeout

		return nil
	})
}

// WithSenderQueueSize sets the size of the sender queue.
// It should be between 1 and 1000. Defaults to 10.
func WithSenderQueueSize(size int) ConnOption {
	return newConnOptFunc("WithSenderQueueSize", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if size < 1 || size > 1000 {
			return errors.New("ipc: sender queue size out of range [1, 1000]")
		}
		cfg.senderQueueSize = size

		return nil
	})
}

// WithLogger sets the logger instance for the connection.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}
		if l == nil {
			return errors.New("ipc: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
