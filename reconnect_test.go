package livefeed

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestReconnectPolicy_FiresOnceAfterDelay(t *testing.T) {
	mock := clock.NewMock()
	p := newReconnectPolicy(mock, 3*time.Second)

	fired := make(chan struct{}, 4)
	if !p.schedule(func() { fired <- struct{}{} }) {
		t.Fatal("first schedule() should arm the timer")
	}
	if !p.pending() {
		t.Fatal("pending() should be true after schedule()")
	}

	mock.Add(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("timer fired before the delay elapsed")
	default:
	}

	mock.Add(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after the delay")
	}

	mock.Add(time.Minute)
	select {
	case <-fired:
		t.Fatal("timer fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconnectPolicy_SinglePending(t *testing.T) {
	p := newReconnectPolicy(clock.NewMock(), time.Second)

	p.schedule(func() {})
	if p.schedule(func() {}) {
		t.Error("second schedule() should be refused while a timer is pending")
	}
}

func TestReconnectPolicy_Cancel(t *testing.T) {
	mock := clock.NewMock()
	p := newReconnectPolicy(mock, time.Second)

	fired := make(chan struct{}, 1)
	p.schedule(func() { fired <- struct{}{} })
	p.cancel()

	if p.pending() {
		t.Error("pending() should be false after cancel()")
	}

	mock.Add(10 * time.Second)
	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	p.cancel() // no timer: no-op
}

func TestReconnectPolicy_AttemptsAndReset(t *testing.T) {
	p := newReconnectPolicy(clock.NewMock(), time.Second)

	p.schedule(func() {})
	p.fired()
	p.schedule(func() {})
	p.fired()

	if p.attempts != 2 {
		t.Errorf("attempts = %d, want 2", p.attempts)
	}
	if p.pending() {
		t.Error("fired() should clear the pending timer")
	}

	p.reset()
	if p.attempts != 0 {
		t.Errorf("after reset, attempts = %d, want 0", p.attempts)
	}
}
