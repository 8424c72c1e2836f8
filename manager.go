package livefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Callbacks are the side channels a subscriber registers once, at
// construction. Every field is optional. Callbacks run on the Manager's
// internal goroutines, never while it holds its lock.
type Callbacks struct {
	// OnMessage receives every successfully parsed inbound frame, once.
	OnMessage func(msg *Message)

	// OnConnect is called each time the connection opens.
	OnConnect func()

	// OnDisconnect is called each time an open connection closes. err is
	// nil when Disconnect (or a fresh Connect) closed it.
	OnDisconnect func(err error)

	// OnError receives connection and transport failures.
	OnError ErrorHandler
}

// Stats is a point-in-time view of a Manager.
type Stats struct {
	Channel           Descriptor
	Status            Status
	ConnectionID      string // id of the current or last connection attempt
	ConnectedAt       time.Time
	LastMessageAt     time.Time
	HeartbeatsSent    int
	ReconnectAttempts int // attempts since the last successful connection
	ReconnectPending  bool
}

// Manager owns the single connection of one channel. It is the only writer
// of the channel's Status; everything else observes it.
type Manager struct {
	desc   Descriptor
	cb     Callbacks
	opts   managerOptions
	logger zerolog.Logger

	mu          sync.Mutex
	status      Status
	conn        Conn
	gen         uint64 // bumped on every teardown; detaches stale transports
	cancelDial  context.CancelFunc
	intentional bool
	closed      bool
	heartbeat   *heartbeat
	reconnect   *reconnectPolicy

	connID        string
	connectedAt   time.Time
	heartbeats    int
	lastMessage   *Message
	lastMessageAt time.Time
}

// New creates a Manager for the channel described by desc. The Manager is
// disconnected until Connect is called.
func New(desc Descriptor, cb Callbacks, opts ...Option) *Manager {
	o := managerDefaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = WebsocketDialer{
			HandshakeTimeout: DefaultHandshakeTimeout,
			WriteTimeout:     DefaultWriteTimeout,
		}
	}

	return &Manager{
		desc: desc,
		cb:   cb,
		opts: o,
		logger: o.logger.With().
			Str("kind", desc.Kind.Name).
			Str("channel_id", desc.ID).
			Logger(),
		status:    StatusDisconnected,
		reconnect: newReconnectPolicy(o.clock, o.reconnectDelay),
	}
}

// Descriptor returns the channel this Manager serves.
func (m *Manager) Descriptor() Descriptor {
	return m.desc
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsConnected reports whether Status is StatusConnected.
func (m *Manager) IsConnected() bool {
	return m.Status() == StatusConnected
}

// Stats returns a snapshot of the Manager's counters and timestamps.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Channel:           m.desc,
		Status:            m.status,
		ConnectionID:      m.connID,
		ConnectedAt:       m.connectedAt,
		LastMessageAt:     m.lastMessageAt,
		HeartbeatsSent:    m.heartbeats,
		ReconnectAttempts: m.reconnect.attempts,
		ReconnectPending:  m.reconnect.pending(),
	}
}

// Connect opens the channel. It returns immediately; progress is reported
// through Status and the callbacks. Any existing connection, in-flight dial
// and pending timer is torn down first. Without a resolved channel id the
// call is a logged no-op.
func (m *Manager) Connect() {
	m.mu.Lock()
	notify := m.connectLocked()
	m.mu.Unlock()
	notify()
}

// connectLocked starts a connection attempt and returns the callbacks to run
// once the lock is released.
func (m *Manager) connectLocked() func() {
	if m.closed {
		m.misuseLocked(ErrManagerClosed, "connect ignored")
		return func() {}
	}
	if !m.desc.HasID() {
		m.misuseLocked(ErrMissingID, "connect skipped")
		return func() {}
	}

	wasLive := m.teardownLocked()
	m.intentional = false

	onDisconnect := func() {}
	if wasLive && m.cb.OnDisconnect != nil {
		fn := m.cb.OnDisconnect
		onDisconnect = func() { fn(nil) }
	}

	addr, err := m.desc.Address()
	if err != nil {
		m.setStatusLocked(StatusError)
		return func() {
			onDisconnect()
			m.logger.Error().Err(err).Msg("invalid channel address")
			m.emitError(ErrConnect, err)
		}
	}

	m.setStatusLocked(StatusConnecting)
	gen := m.gen
	m.connID = uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel

	go m.dial(ctx, gen, addr, m.connID)
	return onDisconnect
}

func (m *Manager) dial(ctx context.Context, gen uint64, addr, connID string) {
	m.logger.Info().Str("address", addr).Str("connection_id", connID).Msg("connecting")

	conn, err := m.opts.dialer.Dial(ctx, addr)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}

	if err != nil {
		m.setStatusLocked(StatusError)
		m.scheduleReconnectLocked(gen)
		m.mu.Unlock()

		m.logger.Error().Err(err).Str("connection_id", connID).Msg("connect failed")
		m.emitError(ErrConnect, err)
		return
	}

	m.conn = conn
	m.connectedAt = m.opts.clock.Now()
	m.reconnect.reset()
	m.setStatusLocked(StatusConnected)
	m.heartbeat = startHeartbeat(m.opts.clock, m.opts.heartbeatInterval, func() bool {
		return m.beat(gen)
	})
	onConnect := m.cb.OnConnect
	m.mu.Unlock()

	m.logger.Info().Str("connection_id", connID).Msg("connected")
	if onConnect != nil {
		onConnect()
	}

	go m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosure(gen, err)
			return
		}
		m.route(gen, data)
	}
}

// handleClosure runs when the transport of generation gen stops delivering
// frames. Closures caused by Disconnect or a fresh Connect have already
// bumped the generation and are ignored here.
func (m *Manager) handleClosure(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	m.heartbeat.halt()
	m.heartbeat = nil
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	closure := isClosure(err)
	if closure {
		m.setStatusLocked(StatusDisconnected)
	} else {
		m.setStatusLocked(StatusError)
	}
	m.scheduleReconnectLocked(gen)
	onDisconnect := m.cb.OnDisconnect
	m.mu.Unlock()

	if closure {
		m.logger.Warn().Err(err).Msg("connection closed")
	} else {
		m.logger.Error().Err(err).Msg("connection failed")
		m.emitError(ErrTransport, err)
	}
	if onDisconnect != nil {
		onDisconnect(err)
	}
}

// Disconnect closes the channel on purpose: the pending reconnect, the
// heartbeat and any in-flight dial are cancelled before it returns, and no
// reconnect follows. Calling it while disconnected is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	wasLive := m.teardownLocked()
	changed := m.status != StatusDisconnected
	m.setStatusLocked(StatusDisconnected)
	onDisconnect := m.cb.OnDisconnect
	m.mu.Unlock()

	if changed {
		m.logger.Info().Msg("disconnected")
	}
	if wasLive && onDisconnect != nil {
		onDisconnect(nil)
	}
}

// Close disconnects and retires the Manager. Later Connect calls are
// ignored.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.Disconnect()
	return nil
}

// Send marshals frame to JSON and writes it. The frame is dropped, and
// ErrNotConnected returned, unless the channel is connected.
func (m *Manager) Send(frame any) error {
	data, err := marshalFrame(frame)
	if err != nil {
		m.dropped(ErrSendDropped)
		m.logger.Warn().Err(err).Msg("send dropped: unencodable frame")
		return err
	}

	m.mu.Lock()
	if m.status != StatusConnected || m.conn == nil {
		status := m.status
		m.opts.observer.FrameDropped(m.desc, ErrSendDropped)
		m.mu.Unlock()
		m.logger.Warn().Stringer("status", status).Msg("send dropped: not connected")
		return ErrNotConnected
	}
	conn := m.conn
	m.mu.Unlock()

	if err := conn.WriteMessage(data); err != nil {
		m.dropped(ErrSendDropped)
		m.logger.Warn().Err(err).Msg("send failed")
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// beat sends one heartbeat for generation gen. It returns false when the
// heartbeat has outlived its connection and must stop.
func (m *Manager) beat(gen uint64) bool {
	m.mu.Lock()
	if gen != m.gen || m.status != StatusConnected || m.conn == nil {
		m.mu.Unlock()
		return false
	}
	conn := m.conn
	m.mu.Unlock()

	if err := conn.WriteMessage(heartbeatFrame); err != nil {
		m.logger.Warn().Err(err).Msg("heartbeat write failed")
		m.dropped(ErrSendDropped)
		return true
	}

	m.mu.Lock()
	if gen == m.gen {
		m.heartbeats++
		m.opts.observer.HeartbeatSent(m.desc)
	}
	m.mu.Unlock()
	return true
}

// teardownLocked detaches and closes whatever the current generation owns.
// It reports whether an open transport was closed.
func (m *Manager) teardownLocked() bool {
	m.gen++
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.heartbeat.halt()
	m.heartbeat = nil
	m.reconnect.cancel()

	if m.conn == nil {
		return false
	}
	m.conn.Close()
	m.conn = nil
	return true
}

func (m *Manager) scheduleReconnectLocked(gen uint64) {
	if m.intentional || m.closed {
		return
	}
	scheduled := m.reconnect.schedule(func() {
		m.reconnectFired(gen)
	})
	if scheduled {
		m.opts.observer.ReconnectScheduled(m.desc, m.reconnect.delay)
		m.logger.Info().
			Dur("delay", m.reconnect.delay).
			Int("attempt", m.reconnect.attempts+1).
			Msg("reconnect scheduled")
	}
}

func (m *Manager) reconnectFired(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.intentional || m.closed {
		m.mu.Unlock()
		return
	}
	m.reconnect.fired()
	notify := m.connectLocked()
	m.mu.Unlock()
	notify()
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	prev := m.status
	m.status = s
	m.logger.Debug().Stringer("from", prev).Stringer("to", s).Msg("status changed")
	m.opts.observer.StatusChanged(m.desc, prev, s)
}

func (m *Manager) misuseLocked(err error, msg string) {
	m.opts.observer.Misuse(m.desc, err)
	m.logger.Warn().Err(err).Stringer("error_kind", ErrMisuse).Msg(msg)
}

func (m *Manager) dropped(kind ErrorKind) {
	m.mu.Lock()
	m.opts.observer.FrameDropped(m.desc, kind)
	m.mu.Unlock()
}

func (m *Manager) emitError(kind ErrorKind, err error) {
	if m.cb.OnError == nil {
		return
	}
	m.cb.OnError(FeedError{
		Kind:      kind,
		Channel:   m.desc,
		Cause:     err,
		Timestamp: m.opts.clock.Now(),
	})
}
