package livefeed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens a transport to a channel address.
// The default implementation is WebsocketDialer.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// Conn is one live transport. ReadMessage is only called from a single
// goroutine; WriteMessage and Close may be called concurrently with it.
type Conn interface {
	// ReadMessage blocks until the next text frame arrives or the
	// transport fails.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame.
	WriteMessage(data []byte) error

	// Close sends a normal close frame where possible and releases the
	// transport. It is safe to call more than once.
	Close() error
}

// WebsocketDialer dials channels with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Header           http.Header
}

// Dial implements Dialer.
func (d WebsocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, address, d.Header)
	if err != nil {
		reason := err.Error()
		if resp != nil {
			reason = resp.Status + ": " + reason
		}
		return nil, &ConnectionError{URL: address, Reason: reason}
	}
	return &wsConn{conn: conn, writeTimeout: d.WriteTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex // serializes writes
	closed bool
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.mu.Unlock()
	return c.conn.Close()
}

// isClosure reports whether a read error is the connection closing (a close
// frame, or the peer vanishing) rather than some other transport failure.
func isClosure(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
