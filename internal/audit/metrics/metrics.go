// Package metrics exposes Prometheus collectors for the audit recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsRecorded     *prometheus.CounterVec
	WriteFailures      prometheus.Counter
	WriteDuration      prometheus.Histogram
	SuspiciousFindings *prometheus.CounterVec
	PublishFailures    prometheus.Counter
	EventsPurged       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telehealth_audit_events_recorded_total",
			Help: "Audit events written, by retention category",
		}, []string{"category"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_audit_write_failures_total",
			Help: "Audit store writes that failed and were swallowed",
		}),
		WriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telehealth_audit_write_duration_seconds",
			Help:    "Latency of audit store writes",
			Buckets: prometheus.DefBuckets,
		}),
		SuspiciousFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telehealth_audit_suspicious_findings_total",
			Help: "Suspicious-activity heuristic hits, by kind",
		}, []string{"kind"}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_audit_publish_failures_total",
			Help: "Security events that could not be published to the fan-out topic",
		}),
		EventsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_audit_events_purged_total",
			Help: "Audit events deleted by the retention purge",
		}),
	}
}

func (m *Metrics) ObserveWrite(start time.Time) {
	if m == nil {
		return
	}
	m.WriteDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRecorded(category string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementWriteFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func (m *Metrics) IncrementFinding(kind string) {
	if m == nil {
		return
	}
	m.SuspiciousFindings.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *Metrics) AddPurged(n int64) {
	if m == nil {
		return
	}
	m.EventsPurged.Add(float64(n))
}
