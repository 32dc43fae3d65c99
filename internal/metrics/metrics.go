package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the audit subsystem.
type Metrics struct {
	AuditEntriesRecorded *prometheus.CounterVec
	AuditRecordFailures  prometheus.Counter
	AuditPublishFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuditEntriesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_audit_entries_recorded_total",
			Help: "Total number of audit log entries persisted, by change type",
		}, []string{"change_type"}),
		AuditRecordFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hr_audit_record_failures_total",
			Help: "Total number of audit log writes rejected by the store",
		}),
		AuditPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hr_audit_publish_failures_total",
			Help: "Total number of audit events that could not be fanned out",
		}),
	}
}

func (m *Metrics) IncrementRecorded(changeType string) {
	if m == nil {
		return
	}
	m.AuditEntriesRecorded.WithLabelValues(changeType).Inc()
}

func (m *Metrics) IncrementRecordFailures() {
	if m == nil {
		return
	}
	m.AuditRecordFailures.Inc()
}

func (m *Metrics) IncrementPublishFailures() {
	if m == nil {
		return
	}
	m.AuditPublishFailures.Inc()
}
