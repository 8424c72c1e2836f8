// Package metrics exports livefeed connection activity as Prometheus metrics.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/orderly/livefeed"
)

// Collector is a livefeed.Observer that records into Prometheus collectors.
// One Collector can observe any number of Managers; series are labelled by
// channel kind.
type Collector struct {
	status     *prometheus.GaugeVec
	heartbeats *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	messages   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	misuse     *prometheus.CounterVec

	mu     sync.Mutex
	counts map[statusKey]int
}

type statusKey struct {
	kind   string
	status livefeed.Status
}

var _ livefeed.Observer = (*Collector)(nil)

// NewCollector registers the livefeed metrics with reg. A nil reg registers
// nothing, which is handy in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		counts: make(map[statusKey]int),
		status: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "livefeed_connection_status",
				Help: "Number of channels currently in each connection status",
			},
			[]string{"kind", "status"},
		),
		heartbeats: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livefeed_heartbeats_sent_total",
				Help: "Heartbeat frames written to the event source",
			},
			[]string{"kind"},
		),
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livefeed_reconnects_scheduled_total",
				Help: "Reconnect attempts scheduled after an unplanned closure",
			},
			[]string{"kind"},
		),
		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livefeed_messages_routed_total",
				Help: "Inbound messages delivered to subscribers, by message type",
			},
			[]string{"kind", "type"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livefeed_frames_dropped_total",
				Help: "Inbound or outbound frames discarded, by reason",
			},
			[]string{"kind", "reason"},
		),
		misuse: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livefeed_misuse_total",
				Help: "Calls the Manager refused (" + livefeed.ErrMisuse.String() + "), by reason",
			},
			[]string{"kind", "reason"},
		),
	}
}

// StatusChanged moves one channel from the from gauge to the to gauge.
func (c *Collector) StatusChanged(ch livefeed.Descriptor, from, to livefeed.Status) {
	kind := ch.Kind.Name

	c.mu.Lock()
	defer c.mu.Unlock()

	// Managers start disconnected without reporting it
	prev := statusKey{kind, from}
	if c.counts[prev] > 0 {
		c.counts[prev]--
		c.status.WithLabelValues(kind, from.String()).Set(float64(c.counts[prev]))
	}
	next := statusKey{kind, to}
	c.counts[next]++
	c.status.WithLabelValues(kind, to.String()).Set(float64(c.counts[next]))
}

func (c *Collector) HeartbeatSent(ch livefeed.Descriptor) {
	c.heartbeats.WithLabelValues(ch.Kind.Name).Inc()
}

func (c *Collector) ReconnectScheduled(ch livefeed.Descriptor, _ time.Duration) {
	c.reconnects.WithLabelValues(ch.Kind.Name).Inc()
}

func (c *Collector) MessageRouted(ch livefeed.Descriptor, msgType string) {
	if msgType == "" {
		msgType = "untyped"
	}
	c.messages.WithLabelValues(ch.Kind.Name, msgType).Inc()
}

func (c *Collector) FrameDropped(ch livefeed.Descriptor, reason livefeed.ErrorKind) {
	c.dropped.WithLabelValues(ch.Kind.Name, reason.String()).Inc()
}

func (c *Collector) Misuse(ch livefeed.Descriptor, err error) {
	c.misuse.WithLabelValues(ch.Kind.Name, misuseReason(err)).Inc()
}

func misuseReason(err error) string {
	switch {
	case errors.Is(err, livefeed.ErrMissingID):
		return "missing_id"
	case errors.Is(err, livefeed.ErrManagerClosed):
		return "manager_closed"
	default:
		return "other"
	}
}
