package livefeed

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies a family of channels and the path segment its feeds are
// served under.
type Kind struct {
	Name string // used in logs and metric labels
	Path string // address segment: {base}/ws/{Path}/{id}
}

// Channel kinds served by the event source.
var (
	KindRestaurant = Kind{Name: "restaurant", Path: "restaurant"}
	KindUser       = Kind{Name: "user", Path: "notifications"}
)

func (k Kind) String() string {
	return k.Name
}

// Descriptor is the pure-data description of one channel. A Manager binds
// its descriptor at construction and never changes it.
type Descriptor struct {
	BaseURL string
	Kind    Kind
	ID      string
}

// HasID reports whether the channel id has been resolved.
func (d Descriptor) HasID() bool {
	return strings.TrimSpace(d.ID) != ""
}

func (d Descriptor) String() string {
	return d.Kind.Name + "/" + d.ID
}

// Address derives the websocket address of the channel.
// "http://api.local/" + KindRestaurant + "r-1" → "ws://api.local/ws/restaurant/r-1"
func (d Descriptor) Address() (string, error) {
	if d.BaseURL == "" {
		return "", fmt.Errorf("channel %s: base URL is empty", d)
	}
	if !d.HasID() {
		return "", ErrMissingID
	}
	if d.Kind.Path == "" {
		return "", fmt.Errorf("channel %s: kind has no path", d)
	}

	u, err := url.Parse(strings.TrimRight(d.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("base URL %q: unsupported scheme %q", d.BaseURL, u.Scheme)
	}

	return u.String() + "/ws/" + d.Kind.Path + "/" + url.PathEscape(d.ID), nil
}
