package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit throughput and loss.
type Metrics struct {
	EventsEmitted *prometheus.CounterVec
	EventsDropped prometheus.Counter
	SinkFailures  prometheus.Counter
}

// NewMetrics creates and registers the audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_audit_events_emitted_total",
			Help: "Audit events handed to the sink, by action",
		}, []string{"action"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_audit_events_dropped_total",
			Help: "Audit events dropped because the async buffer was full",
		}),
		SinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_audit_sink_failures_total",
			Help: "Audit events the sink failed to persist",
		}),
	}
}

func (m *Metrics) IncEmitted(action Action) {
	if m != nil {
		m.EventsEmitted.WithLabelValues(string(action)).Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}

func (m *Metrics) IncSinkFailure() {
	if m != nil {
		m.SinkFailures.Inc()
	}
}
