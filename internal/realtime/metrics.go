package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks change fan-out.
type Metrics struct {
	Subscribers prometheus.Gauge
	Published   *prometheus.CounterVec
	Dropped     prometheus.Counter
}

// NewMetrics creates and registers the change feed metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_realtime_subscribers",
			Help: "Open change subscriptions",
		}),
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_realtime_changes_total",
			Help: "Changes dispatched to the hub, by table and type",
		}, []string{"table", "type"}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_realtime_dropped_total",
			Help: "Notifications dropped because a subscriber buffer was full",
		}),
	}
}

func (m *Metrics) subscribed() {
	if m != nil {
		m.Subscribers.Inc()
	}
}

func (m *Metrics) unsubscribed() {
	if m != nil {
		m.Subscribers.Dec()
	}
}

func (m *Metrics) published(c Change) {
	if m != nil {
		m.Published.WithLabelValues(c.Table, string(c.Type)).Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
