package livefeed

import (
	"time"

	"github.com/benbjohnson/clock"
)

// heartbeat ticks at a fixed interval while its connection is current.
// The beat callback reports whether the connection is still current and
// connected; when it returns false the loop exits on its own.
type heartbeat struct {
	ticker *clock.Ticker
	stop   chan struct{}
}

// startHeartbeat creates the ticker before returning so that no tick is
// lost between start and the first wait.
func startHeartbeat(clk clock.Clock, interval time.Duration, beat func() bool) *heartbeat {
	h := &heartbeat{
		ticker: clk.Ticker(interval),
		stop:   make(chan struct{}),
	}
	go h.loop(beat)
	return h
}

func (h *heartbeat) loop(beat func() bool) {
	defer h.ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-h.ticker.C:
			select {
			case <-h.stop:
				return
			default:
			}
			if !beat() {
				return
			}
		}
	}
}

// halt stops the loop. Safe on a nil heartbeat and on repeated calls.
func (h *heartbeat) halt() {
	if h == nil {
		return
	}
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}
