package livefeed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConnectionError_Error(t *testing.T) {
	err := &ConnectionError{
		URL:    "ws://localhost:8000/ws/restaurant/r-1",
		Reason: "connection refused",
	}
	want := "connection error [ws://localhost:8000/ws/restaurant/r-1]: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConnectionError_ErrorsAs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ConnectionError{
		URL:    "ws://localhost:8000",
		Reason: "403 Forbidden",
	})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatal("errors.As should match ConnectionError")
	}
	if connErr.Reason != "403 Forbidden" {
		t.Errorf("Reason = %q, want %q", connErr.Reason, "403 Forbidden")
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrConnect, "ErrConnect"},
		{ErrTransport, "ErrTransport"},
		{ErrParseFailure, "ErrParseFailure"},
		{ErrSendDropped, "ErrSendDropped"},
		{ErrMisuse, "ErrMisuse"},
		{ErrorKind(99), "ErrorKind(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestFeedError_Error(t *testing.T) {
	err := &FeedError{
		Kind:    ErrTransport,
		Channel: Descriptor{Kind: KindRestaurant, ID: "r-1"},
		Cause:   errors.New("connection reset"),
	}
	want := "ErrTransport: connection reset (channel=restaurant/r-1)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noCause := &FeedError{Kind: ErrConnect, Channel: Descriptor{Kind: KindUser, ID: "u-1"}}
	if got := noCause.Error(); got != "ErrConnect (channel=user/u-1)" {
		t.Errorf("Error() without cause = %q", got)
	}
}

func TestFeedError_Unwrap(t *testing.T) {
	cause := &ConnectionError{URL: "ws://x", Reason: "refused"}
	err := &FeedError{Kind: ErrConnect, Cause: cause}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatal("errors.As should reach the cause through FeedError")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the cause")
	}
}

func TestLogErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := LogErrors(zerolog.New(&buf))

	handler(FeedError{
		Kind:      ErrConnect,
		Channel:   Descriptor{Kind: KindRestaurant, ID: "r-1"},
		Cause:     errors.New("dial timeout"),
		Timestamp: time.Now(),
	})

	out := buf.String()
	for _, want := range []string{`"error_kind":"ErrConnect"`, `"channel_id":"r-1"`, `"kind":"restaurant"`, "dial timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}
}
