package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdateProcessingTime prometheus.Histogram
	ErrorsTotal          prometheus.Counter
	ActiveSessions       prometheus.Gauge
}

// NewMetrics создает метрики бота в указанном реестре
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetdesk",
			Name:      "bot_update_processing_time_seconds",
			Help:      "Time spent processing updates",
			Buckets:   prometheus.DefBuckets,
		}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetdesk",
			Name:      "bot_errors_total",
			Help:      "Panics recovered in update handlers",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleetdesk",
			Name:      "bot_active_sessions",
			Help:      "Booking cards currently open in admin chats",
		}),
	}
}
