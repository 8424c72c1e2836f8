// Package events gives meaning to the messages a livefeed channel delivers:
// it routes them by type to handlers and binds the order and notification
// feeds to the data layer that refreshes after each event.
package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/orderly/livefeed"
)

// HandlerFunc handles one inbound message of a registered type.
type HandlerFunc func(msg *livefeed.Message) error

// Dispatcher routes messages to handlers by their "type" field. Its
// Dispatch method is meant to be used as livefeed.Callbacks.OnMessage.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc // message type → handler
	fallback HandlerFunc
	logger   zerolog.Logger
}

// NewDispatcher creates an empty Dispatcher that logs to logger.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers fn for msgType. Each type has at most one handler.
func (d *Dispatcher) Handle(msgType string, fn HandlerFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("handler for message type %q is nil", msgType)
	}
	if _, exists := d.handlers[msgType]; exists {
		return fmt.Errorf("handler already registered for message type %q", msgType)
	}
	d.handlers[msgType] = fn
	return nil
}

// HandleDefault registers the handler for types nobody else claims.
func (d *Dispatcher) HandleDefault(fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = fn
}

func (d *Dispatcher) lookup(msgType string) (HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if fn, ok := d.handlers[msgType]; ok {
		return fn, true
	}
	return d.fallback, d.fallback != nil
}

// Types returns the registered message types.
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	types := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	return types
}

// Dispatch runs the handler for msg. Unknown types, handler errors and
// handler panics are logged; none of them reaches the connection.
func (d *Dispatcher) Dispatch(msg *livefeed.Message) {
	fn, ok := d.lookup(msg.Type)
	if !ok {
		d.logger.Debug().Str("type", msg.Type).Msg("no handler for message type")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("type", msg.Type).Msg("message handler panicked")
		}
	}()
	if err := fn(msg); err != nil {
		d.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler failed")
	}
}
