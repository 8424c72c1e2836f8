package livefeed

import (
	"time"

	"github.com/benbjohnson/clock"
)

// reconnectPolicy holds at most one pending reconnect timer. The delay is
// fixed and attempts are unbounded. Callers serialize access.
type reconnectPolicy struct {
	clock    clock.Clock
	delay    time.Duration
	timer    *clock.Timer
	attempts int
}

func newReconnectPolicy(clk clock.Clock, delay time.Duration) *reconnectPolicy {
	return &reconnectPolicy{clock: clk, delay: delay}
}

// schedule arms the timer to run fire after the delay. It returns false,
// leaving the existing timer untouched, if one is already pending.
func (p *reconnectPolicy) schedule(fire func()) bool {
	if p.timer != nil {
		return false
	}
	p.timer = p.clock.AfterFunc(p.delay, fire)
	return true
}

// fired clears the pending timer and counts the attempt. Called by the
// timer callback before reconnecting.
func (p *reconnectPolicy) fired() {
	p.timer = nil
	p.attempts++
}

func (p *reconnectPolicy) cancel() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *reconnectPolicy) pending() bool {
	return p.timer != nil
}

// reset forgets the attempt count once a connection is established.
func (p *reconnectPolicy) reset() {
	p.attempts = 0
}
