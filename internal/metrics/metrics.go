package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetdesk",
			Name:      "backend_requests_total",
			Help:      "Rental API requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleetdesk",
			Name:      "backend_request_duration_seconds",
			Help:      "Rental API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetdesk",
			Name:      "booking_transitions_total",
			Help:      "Completed booking status transition attempts by target status and outcome.",
		},
		[]string{"target", "outcome"},
	)

	botUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetdesk",
			Name:      "bot_updates_total",
			Help:      "Telegram updates handled by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(backendRequests, backendDuration, transitions, botUpdates)
	})
}

// ObserveBackend records one rental API call.
func ObserveBackend(endpoint, outcome string, dur time.Duration) {
	backendRequests.WithLabelValues(endpoint, outcome).Inc()
	backendDuration.WithLabelValues(endpoint).Observe(dur.Seconds())
}

// IncTransition counts a finished transition attempt.
func IncTransition(target, outcome string) {
	transitions.WithLabelValues(target, outcome).Inc()
}

// IncBotUpdate counts an incoming Telegram update.
func IncBotUpdate(kind string) {
	botUpdates.WithLabelValues(kind).Inc()
}
