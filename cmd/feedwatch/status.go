package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderly/livefeed"
)

type statsSource interface {
	Stats() livefeed.Stats
}

type healthResponse struct {
	Channel           string     `json:"channel"`
	Status            string     `json:"status"`
	ConnectionID      string     `json:"connection_id,omitempty"`
	ConnectedAt       *time.Time `json:"connected_at,omitempty"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	HeartbeatsSent    int        `json:"heartbeats_sent"`
	ReconnectAttempts int        `json:"reconnect_attempts"`
	ReconnectPending  bool       `json:"reconnect_pending"`
}

func statusRouter(gatherer prometheus.Gatherer, feed statsSource) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler(feed)).Methods(http.MethodGet)
	return r
}

// healthHandler reports 200 while the feed is connected and 503 otherwise.
func healthHandler(feed statsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := feed.Stats()
		resp := healthResponse{
			Channel:           st.Channel.String(),
			Status:            st.Status.String(),
			ConnectionID:      st.ConnectionID,
			ConnectedAt:       optionalTime(st.ConnectedAt),
			LastMessageAt:     optionalTime(st.LastMessageAt),
			HeartbeatsSent:    st.HeartbeatsSent,
			ReconnectAttempts: st.ReconnectAttempts,
			ReconnectPending:  st.ReconnectPending,
		}

		w.Header().Set("Content-Type", "application/json")
		if st.Status != livefeed.StatusConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
