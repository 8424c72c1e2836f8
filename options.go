package livefeed

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default timings.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReconnectDelay    = 3 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
)

// Option configures a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	logger            zerolog.Logger
	clock             clock.Clock
	dialer            Dialer
	observer          Observer
	heartbeatInterval time.Duration
	reconnectDelay    time.Duration
}

func managerDefaults() managerOptions {
	return managerOptions{
		logger:            log.Logger.With().Str("component", "livefeed").Logger(),
		clock:             clock.New(),
		observer:          nopObserver{},
		heartbeatInterval: DefaultHeartbeatInterval,
		reconnectDelay:    DefaultReconnectDelay,
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithClock replaces the clock that drives heartbeats and reconnects.
// Tests pass a *clock.Mock.
func WithClock(c clock.Clock) Option {
	return func(o *managerOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) Option {
	return func(o *managerOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithObserver registers an Observer for lifecycle events.
func WithObserver(obs Observer) Option {
	return func(o *managerOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithHeartbeatInterval sets the keepalive cadence. Non-positive values are
// ignored.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *managerOptions) {
		if d > 0 {
			o.heartbeatInterval = d
		}
	}
}

// WithReconnectDelay sets the fixed delay before a reconnect attempt.
// Non-positive values are ignored.
func WithReconnectDelay(d time.Duration) Option {
	return func(o *managerOptions) {
		if d > 0 {
			o.reconnectDelay = d
		}
	}
}
