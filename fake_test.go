package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// fakeDialer hands out in-memory connections and records every address it
// was asked to dial.
type fakeDialer struct {
	mu    sync.Mutex
	addrs []string
	conns []*fakeConn
	err   error
	block chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (Conn, error) {
	d.mu.Lock()
	d.addrs = append(d.addrs, address)
	err := d.err
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.addrs)
}

func (d *fakeDialer) addresses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]string, len(d.addrs))
	copy(cp, d.addrs)
	return cp
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) liveConns() int {
	d.mu.Lock()
	conns := append([]*fakeConn(nil), d.conns...)
	d.mu.Unlock()

	n := 0
	for _, c := range conns {
		if !c.isClosed() {
			n++
		}
	}
	return n
}

// fakeConn is an in-memory transport. Frames pushed by the test are read by
// the Manager; frames written by the Manager are recorded.
type fakeConn struct {
	inbound chan []byte
	fail    chan error
	done    chan struct{}

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		fail:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.done:
		return nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	default:
	}
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.fail:
		return nil, err
	case <-c.done:
		return nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

func (c *fakeConn) drop(err error) {
	c.fail <- err
}

func (c *fakeConn) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recordingObserver captures every Observer event.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []Status
	heartbeats  int
	scheduled   []time.Duration
	routed      []string
	dropped     []ErrorKind
	misuse      []error
}

func (o *recordingObserver) StatusChanged(_ Descriptor, _, to Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, to)
}

func (o *recordingObserver) HeartbeatSent(Descriptor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.heartbeats++
}

func (o *recordingObserver) ReconnectScheduled(_ Descriptor, delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = append(o.scheduled, delay)
}

func (o *recordingObserver) MessageRouted(_ Descriptor, msgType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routed = append(o.routed, msgType)
}

func (o *recordingObserver) FrameDropped(_ Descriptor, reason ErrorKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, reason)
}

func (o *recordingObserver) Misuse(_ Descriptor, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misuse = append(o.misuse, err)
}

func (o *recordingObserver) misuseErrs() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.misuse...)
}

func (o *recordingObserver) droppedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.dropped)
}

func (o *recordingObserver) droppedKinds() []ErrorKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ErrorKind(nil), o.dropped...)
}

func (o *recordingObserver) scheduledDelays() []time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]time.Duration(nil), o.scheduled...)
}

func (o *recordingObserver) routedTypes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.routed...)
}

func (o *recordingObserver) statusTrail() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Status(nil), o.transitions...)
}
