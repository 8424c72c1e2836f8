package livefeed

// route turns one inbound frame into a Message and hands it to the
// subscriber. Frames that fail to parse are logged and discarded; they never
// touch LastMessage, Status or the connection.
func (m *Manager) route(gen uint64, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		m.mu.Lock()
		current := gen == m.gen
		if current {
			m.opts.observer.FrameDropped(m.desc, ErrParseFailure)
		}
		m.mu.Unlock()
		if current {
			m.logger.Warn().
				Err(err).
				Int("bytes", len(data)).
				Msg("discarding malformed frame")
		}
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.lastMessage = msg
	m.lastMessageAt = m.opts.clock.Now()
	m.opts.observer.MessageRouted(m.desc, msg.Type)
	onMessage := m.cb.OnMessage
	m.mu.Unlock()

	m.logger.Debug().Str("type", msg.Type).Msg("message received")
	if onMessage != nil {
		onMessage(msg)
	}
}

// LastMessage returns the most recently routed message, or nil.
func (m *Manager) LastMessage() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessage
}
