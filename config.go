package livefeed

import (
	"fmt"
	"os"
	"time"
)

// Config holds the process-wide settings shared by every channel.
type Config struct {
	// BaseURL is the address of the event source, e.g. "wss://api.example.com".
	// Fallback: LIVEFEED_BASE_URL environment variable.
	BaseURL string `yaml:"base_url"`

	// HeartbeatInterval is the keepalive cadence.
	// Fallback: LIVEFEED_HEARTBEAT_INTERVAL, then DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// ReconnectDelay is the fixed wait before reconnecting after an unclean
	// closure.
	// Fallback: LIVEFEED_RECONNECT_DELAY, then DefaultReconnectDelay.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// ResolveConfig fills empty fields from environment variables and defaults,
// and validates required fields.
func ResolveConfig(cfg Config) (Config, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("LIVEFEED_BASE_URL")
	}
	if cfg.HeartbeatInterval == 0 {
		d, err := envDuration("LIVEFEED_HEARTBEAT_INTERVAL", DefaultHeartbeatInterval)
		if err != nil {
			return cfg, err
		}
		cfg.HeartbeatInterval = d
	}
	if cfg.ReconnectDelay == 0 {
		d, err := envDuration("LIVEFEED_RECONNECT_DELAY", DefaultReconnectDelay)
		if err != nil {
			return cfg, err
		}
		cfg.ReconnectDelay = d
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("BaseURL is required (set in Config or LIVEFEED_BASE_URL env)")
	}
	if cfg.HeartbeatInterval < 0 || cfg.ReconnectDelay < 0 {
		return cfg, fmt.Errorf("heartbeat interval and reconnect delay must be positive")
	}

	return cfg, nil
}

// Descriptor builds the descriptor of one channel on this event source.
func (c Config) Descriptor(kind Kind, id string) Descriptor {
	return Descriptor{BaseURL: c.BaseURL, Kind: kind, ID: id}
}

// Options converts the timings into Manager options, including a
// WebsocketDialer using the configured timeouts.
func (c Config) Options() []Option {
	return []Option{
		WithHeartbeatInterval(c.HeartbeatInterval),
		WithReconnectDelay(c.ReconnectDelay),
		WithDialer(WebsocketDialer{
			HandshakeTimeout: c.HandshakeTimeout,
			WriteTimeout:     c.WriteTimeout,
		}),
	}
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
