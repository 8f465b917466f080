package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics shared by every router.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	OpenStreams    prometheus.Gauge
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollcall_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		OpenStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_http_open_streams",
			Help: "Server-sent event streams currently open",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

// StreamOpened and StreamClosed track long-lived SSE responses.
func (m *Metrics) StreamOpened() {
	if m != nil {
		m.OpenStreams.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.OpenStreams.Dec()
	}
}
