package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat gateway metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Message sends by outcome (ok, validation, busy, persistence, ai_response)
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "sends_total",
			Help:      "Message sends by outcome",
		},
		[]string{"outcome"},
	)

	ResponderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "responder_duration_seconds",
			Help:      "AI responder round trip in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)

	InFlightInteractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "interactions_in_flight",
			Help:      "Scope keys currently in the sending state on this replica",
		},
	)

	LiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "live_subscriptions",
			Help:      "Open live streams",
		},
		[]string{"kind"},
	)

	AuthRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat",
			Name:      "auth_requests_total",
			Help:      "Auth operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordSend records the outcome of one send
func RecordSend(outcome string) {
	SendsTotal.WithLabelValues(outcome).Inc()
}

// RecordResponderCall records one responder round trip
func RecordResponderCall(status string, durationSec float64) {
	ResponderDuration.WithLabelValues(status).Observe(durationSec)
}

// RecordAuth records an auth operation
func RecordAuth(operation, outcome string) {
	AuthRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// TrackSubscription increments the open stream gauge and returns its decrement.
func TrackSubscription(kind string) func() {
	LiveSubscriptions.WithLabelValues(kind).Inc()
	return func() { LiveSubscriptions.WithLabelValues(kind).Dec() }
}
