/*
Package metrics defines the Prometheus collectors exported by the proximity hub and
the handler that serves them.
*/
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nearby"

// Send outcomes used as the "result" label of SendsTotal.
const (
	SendDelivered = "delivered"
	SendDropped   = "dropped"
)

// Click outcomes used as the "outcome" label of ClicksTotal.
const (
	ClickDelivered  = "delivered"
	ClickUnresolved = "unresolved"
)

// Hub groups the collectors updated by the proximity hub.
type Hub struct {
	Connections       prometheus.Gauge
	Registered        prometheus.Gauge
	FramesTotal       *prometheus.CounterVec
	MalformedTotal    *prometheus.CounterVec
	SendsTotal        *prometheus.CounterVec
	ClicksTotal       *prometheus.CounterVec
	BroadcastRounds   prometheus.Counter
	BroadcastDuration prometheus.Histogram
}

// NewHub creates the hub collectors and registers them with reg.
func NewHub(reg prometheus.Registerer) *Hub {
	f := promauto.With(reg)

	return &Hub{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open transport connections.",
		}),
		Registered: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_users",
			Help:      "Connections with a known position.",
		}),
		FramesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Inbound frames accepted, by message type.",
		}, []string{"type"}),
		MalformedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped during validation, by error code.",
		}, []string{"code"}),
		SendsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Outbound frames, by result.",
		}, []string{"result"}),
		ClicksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Directed click notifications, by outcome.",
		}, []string{"outcome"}),
		BroadcastRounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_rounds_total",
			Help:      "Full nearby-list recomputations across all registered users.",
		}),
		BroadcastDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_round_seconds",
			Help:      "Time spent computing and queueing one broadcast round.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// Malformed counts one dropped frame with the given error code.
func (h *Hub) Malformed(code int) {
	h.MalformedTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Sent counts one outbound frame.
func (h *Hub) Sent(delivered bool) {
	if delivered {
		h.SendsTotal.WithLabelValues(SendDelivered).Inc()
		return
	}
	h.SendsTotal.WithLabelValues(SendDropped).Inc()
}

// Handler serves the collectors in g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
