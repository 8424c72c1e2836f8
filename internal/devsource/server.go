// Package devsource is a local stand-in for the backend event source. It
// accepts livefeed channel connections, counts their heartbeats and lets
// tests or a developer push frames and simulate server restarts over HTTP.
package devsource

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer    = 16
	heartbeatType = "heartbeat"
)

// Server serves the channel routes:
//
//	GET  /ws/{kind}/{id}       websocket channel
//	POST /publish/{kind}/{id}  push the request body to every subscriber
//	POST /drop                 close every socket without a close frame
//	GET  /stats                heartbeat and subscriber counts per channel
type Server struct {
	upgrader websocket.Upgrader
	router   *mux.Router
	logger   zerolog.Logger

	mu         sync.Mutex
	clients    map[string]*client // client id → client
	heartbeats map[string]int     // channel key → heartbeats received
}

type client struct {
	id      string
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

// ChannelStats is the /stats view of one channel.
type ChannelStats struct {
	Subscribers int `json:"subscribers"`
	Heartbeats  int `json:"heartbeats"`
}

// New creates a Server that logs to logger.
func New(logger zerolog.Logger) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		router:     mux.NewRouter(),
		logger:     logger,
		clients:    make(map[string]*client),
		heartbeats: make(map[string]int),
	}
	s.router.HandleFunc("/ws/{kind}/{id}", s.handleChannel).Methods(http.MethodGet)
	s.router.HandleFunc("/publish/{kind}/{id}", s.handlePublish).Methods(http.MethodPost)
	s.router.HandleFunc("/drop", s.handleDrop).Methods(http.MethodPost)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ChannelKey names a channel the way the routes do, e.g. "restaurant/r-1".
func ChannelKey(kindPath, id string) string {
	return kindPath + "/" + id
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		channel: ChannelKey(vars["kind"], vars["id"]),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	s.register(c)

	go s.write(c)
	go s.read(c)
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info().Str("client_id", c.id).Str("channel", c.channel).Msg("subscriber connected")
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) read(c *client) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
		s.logger.Info().Str("client_id", c.id).Str("channel", c.channel).Msg("subscriber disconnected")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &frame); err == nil && frame.Type == heartbeatType {
			s.mu.Lock()
			s.heartbeats[c.channel]++
			s.mu.Unlock()
			continue
		}
		s.logger.Debug().Str("client_id", c.id).RawJSON("frame", jsonOrString(data)).Msg("frame from subscriber")
	}
}

func (s *Server) write(c *client) {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Warn().Err(err).Str("client_id", c.id).Msg("write failed")
		}
	}
}

// Publish queues frame for every subscriber of the channel and returns how
// many received it. The frame is sent verbatim, so malformed frames can be
// published too.
func (s *Server) Publish(channel string, frame []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := 0
	for _, c := range s.clients {
		if c.channel != channel {
			continue
		}
		select {
		case c.send <- frame:
			delivered++
		default:
			s.logger.Warn().Str("client_id", c.id).Msg("subscriber too slow, frame dropped")
		}
	}
	return delivered
}

// DropAll closes every subscriber socket at the TCP level, the way a server
// restart looks to a client. It returns how many sockets were closed.
func (s *Server) DropAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		c.conn.UnderlyingConn().Close()
	}
	return len(s.clients)
}

// Stats returns heartbeat and subscriber counts for channel.
func (s *Server) Stats(channel string) ChannelStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(channel)
}

func (s *Server) statsLocked(channel string) ChannelStats {
	st := ChannelStats{Heartbeats: s.heartbeats[channel]}
	for _, c := range s.clients {
		if c.channel == channel {
			st.Subscribers++
		}
	}
	return st
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty frame", http.StatusBadRequest)
		return
	}

	channel := ChannelKey(vars["kind"], vars["id"])
	n := s.Publish(channel, body)
	s.logger.Info().Str("channel", channel).Int("delivered", n).Msg("frame published")
	writeJSON(w, map[string]int{"delivered": n})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	n := s.DropAll()
	s.logger.Info().Int("dropped", n).Msg("dropped all subscribers")
	writeJSON(w, map[string]int{"dropped": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	channels := make(map[string]bool)
	for ch := range s.heartbeats {
		channels[ch] = true
	}
	for _, c := range s.clients {
		channels[c.channel] = true
	}
	out := make(map[string]ChannelStats, len(channels))
	for ch := range channels {
		out[ch] = s.statsLocked(ch)
	}
	s.mu.Unlock()

	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonOrString(data []byte) []byte {
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
