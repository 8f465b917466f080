package checkin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks check-in attempts.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates and registers the check-in metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_checkin_attempts_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_checkin_attempt_duration_seconds",
			Help:    "Time to resolve a check-in attempt",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) observe(kind Kind, d time.Duration) {
	if m != nil {
		m.Attempts.WithLabelValues(string(kind)).Inc()
		m.Duration.Observe(d.Seconds())
	}
}
