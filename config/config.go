// Package config loads client configuration from TOML files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the endpoints and timeouts of a sensor daemon client.
type Config struct {
	// Control is the synchronous RPC channel endpoint.
	Control Endpoint
	// Data is the streaming data channel endpoint.
	Data Endpoint

	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	ReplyTimeout   time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Endpoint is a dialable address.
type Endpoint struct {
	Network string
	Address string
}

type fileConfig struct {
	Control        endpointConfig `toml:"control"`
	Data           endpointConfig `toml:"data"`
	ConnectTimeout string         `toml:"connect_timeout"`
	SendTimeout    string         `toml:"send_timeout"`
	ReplyTimeout   string         `toml:"reply_timeout"`
	LogLevel       string         `toml:"log_level"`
}

type endpointConfig struct {
	Network string `toml:"network"`
	Address string `toml:"address"`
}

// Default returns the configuration used when no file is given: the daemon's
// conventional unix socket pair.
func Default() Config {
	return Config{
		Control:        Endpoint{Network: "unix", Address: "/run/sensord/control.sock"},
		Data:           Endpoint{Network: "unix", Address: "/run/sensord/data.sock"},
		ConnectTimeout: 3 * time.Second,
		SendTimeout:    5 * time.Second,
		ReplyTimeout:   10 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads a TOML configuration file. Values absent from the file keep
// their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("control", "network") {
		cfg.Control.Network = strings.TrimSpace(raw.Control.Network)
	}
	if meta.IsDefined("control", "address") {
		cfg.Control.Address = strings.TrimSpace(raw.Control.Address)
	}
	if meta.IsDefined("data", "network") {
		cfg.Data.Network = strings.TrimSpace(raw.Data.Network)
	}
	if meta.IsDefined("data", "address") {
		cfg.Data.Address = strings.TrimSpace(raw.Data.Address)
	}

	if meta.IsDefined("connect_timeout") {
		if cfg.ConnectTimeout, err = parseTimeout("connect_timeout", raw.ConnectTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("send_timeout") {
		if cfg.SendTimeout, err = parseTimeout("send_timeout", raw.SendTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("reply_timeout") {
		if cfg.ReplyTimeout, err = parseTimeout("reply_timeout", raw.ReplyTimeout); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseTimeout(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func validate(cfg Config) error {
	if err := validateEndpoint("control", cfg.Control); err != nil {
		return err
	}
	if err := validateEndpoint("data", cfg.Data); err != nil {
		return err
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}

	return nil
}

func validateEndpoint(name string, ep Endpoint) error {
	switch ep.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("%s network must be unix or tcp, got %q", name, ep.Network)
	}
	if strings.TrimSpace(ep.Address) == "" {
		return fmt.Errorf("%s address is required", name)
	}
	return nil
}
