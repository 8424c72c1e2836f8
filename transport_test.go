package livefeed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockEventSource simulates the backend event source for transport tests.
type mockEventSource struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	received []string
	paths    []string
	conn     *websocket.Conn
	closed   chan int // close codes sent by the client
}

func newMockEventSource() *mockEventSource {
	return &mockEventSource{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		closed:   make(chan int, 1),
	}
}

func (s *mockEventSource) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.paths = append(s.paths, r.URL.Path)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				s.closed <- ce.Code
			}
			return
		}
		s.mu.Lock()
		s.received = append(s.received, string(data))
		s.mu.Unlock()
	}
}

func (s *mockEventSource) sendToClient(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

func (s *mockEventSource) dropClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.UnderlyingConn().Close()
	}
}

func (s *mockEventSource) getReceived() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(s.received))
	copy(cp, s.received)
	return cp
}

func setupEventSource(t *testing.T) (*mockEventSource, string) {
	t.Helper()
	mock := newMockEventSource()
	server := httptest.NewServer(http.HandlerFunc(mock.handler))
	t.Cleanup(server.Close)
	return mock, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTest(t *testing.T, address string) Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := WebsocketDialer{HandshakeTimeout: 5 * time.Second, WriteTimeout: time.Second}.Dial(ctx, address)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketDialer_WriteAndRead(t *testing.T) {
	mock, base := setupEventSource(t)
	conn := dialTest(t, base+"/ws/restaurant/r-1")

	if err := conn.WriteMessage(heartbeatFrame); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(mock.getReceived()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	received := mock.getReceived()
	if len(received) != 1 || received[0] != `{"type":"heartbeat"}` {
		t.Fatalf("server received %v, want one heartbeat", received)
	}
	if mock.paths[0] != "/ws/restaurant/r-1" {
		t.Errorf("path = %q, want /ws/restaurant/r-1", mock.paths[0])
	}

	mock.sendToClient(`{"type":"new_order","orderNumber":"42"}`)
	data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if string(data) != `{"type":"new_order","orderNumber":"42"}` {
		t.Errorf("ReadMessage() = %s", data)
	}
}

func TestWebsocketDialer_CloseSendsNormalClosure(t *testing.T) {
	mock, base := setupEventSource(t)
	conn := dialTest(t, base+"/ws/notifications/u-1")

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case code := <-mock.closed:
		if code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d, want %d", code, websocket.CloseNormalClosure)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a close frame")
	}

	if err := conn.WriteMessage(heartbeatFrame); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WriteMessage() after Close = %v, want ErrNotConnected", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestWebsocketDialer_DropIsClosure(t *testing.T) {
	mock, base := setupEventSource(t)
	conn := dialTest(t, base+"/ws/restaurant/r-1")

	// wait for the server side to register the connection
	deadline := time.Now().Add(2 * time.Second)
	for {
		mock.mu.Lock()
		ready := mock.conn != nil
		mock.mu.Unlock()
		if ready || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mock.dropClient()

	_, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("ReadMessage() should fail after the server drops")
	}
	if !isClosure(err) {
		t.Errorf("isClosure(%v) = false, a silent drop should count as a closure", err)
	}
}

func TestWebsocketDialer_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	address := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/restaurant/r-1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := WebsocketDialer{HandshakeTimeout: time.Second}.Dial(ctx, address)
	server.Close()
	if err == nil {
		t.Fatal("Dial() should fail when the server refuses the upgrade")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
	}
	if !strings.Contains(connErr.Reason, "404") {
		t.Errorf("reason should carry the HTTP status, got %q", connErr.Reason)
	}
}

func TestIsClosure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{&websocket.CloseError{Code: websocket.CloseAbnormalClosure}, true},
		{io.EOF, true},
		{io.ErrUnexpectedEOF, true},
		{errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		if got := isClosure(tt.err); got != tt.want {
			t.Errorf("isClosure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
