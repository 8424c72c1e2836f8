package livefeed

// Status is the connection state of a Manager. Only the Manager writes it.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusError:        "error",
}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Statuses lists every status, in declaration order.
func Statuses() []Status {
	return []Status{StatusDisconnected, StatusConnecting, StatusConnected, StatusError}
}
