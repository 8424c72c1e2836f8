package livefeed

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for manager state and misuse.
var (
	ErrNotConnected  = errors.New("channel is not connected")
	ErrMissingID     = errors.New("channel id is not resolved")
	ErrManagerClosed = errors.New("manager is closed")
)

// ConnectionError represents a failure to open or keep the connection to the
// event source.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

// ErrorKind classifies failures that cannot be returned to a direct caller.
type ErrorKind int

const (
	ErrConnect      ErrorKind = iota // dial or handshake failed
	ErrTransport                     // established connection failed
	ErrParseFailure                  // inbound frame was not a JSON object
	ErrSendDropped                   // outbound frame dropped or not written
	ErrMisuse                        // call refused: no channel id, or manager closed
)

var errorKindNames = [...]string{
	ErrConnect:      "ErrConnect",
	ErrTransport:    "ErrTransport",
	ErrParseFailure: "ErrParseFailure",
	ErrSendDropped:  "ErrSendDropped",
	ErrMisuse:       "ErrMisuse",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// FeedError describes a failure observed on a channel.
type FeedError struct {
	Kind      ErrorKind
	Channel   Descriptor
	Cause     error
	Timestamp time.Time
}

func (e *FeedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (channel=%s)", e.Kind, e.Cause, e.Channel)
	}
	return fmt.Sprintf("%s (channel=%s)", e.Kind, e.Channel)
}

func (e *FeedError) Unwrap() error {
	return e.Cause
}

// ErrorHandler receives connection and transport failures. It is the OnError
// side channel of Callbacks.
type ErrorHandler func(FeedError)

// LogErrors returns an ErrorHandler that logs every failure to logger.
func LogErrors(logger zerolog.Logger) ErrorHandler {
	return func(e FeedError) {
		logger.Error().
			Err(e.Cause).
			Str("kind", e.Channel.Kind.Name).
			Str("channel_id", e.Channel.ID).
			Stringer("error_kind", e.Kind).
			Msg("livefeed error")
	}
}
