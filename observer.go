package livefeed

import "time"

// Observer receives lifecycle events from a Manager. Methods are called
// synchronously while the Manager holds its lock; they must return quickly
// and must not call back into the Manager.
type Observer interface {
	StatusChanged(ch Descriptor, from, to Status)
	HeartbeatSent(ch Descriptor)
	ReconnectScheduled(ch Descriptor, delay time.Duration)
	MessageRouted(ch Descriptor, msgType string)
	FrameDropped(ch Descriptor, reason ErrorKind)

	// Misuse reports a call the Manager refused, such as Connect without a
	// channel id (ErrMissingID) or after Close (ErrManagerClosed).
	Misuse(ch Descriptor, err error)
}

type nopObserver struct{}

func (nopObserver) StatusChanged(Descriptor, Status, Status)     {}
func (nopObserver) HeartbeatSent(Descriptor)                     {}
func (nopObserver) ReconnectScheduled(Descriptor, time.Duration) {}
func (nopObserver) MessageRouted(Descriptor, string)             {}
func (nopObserver) FrameDropped(Descriptor, ErrorKind)           {}
func (nopObserver) Misuse(Descriptor, error)                     {}
