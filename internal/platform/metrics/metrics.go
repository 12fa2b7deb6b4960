// Package metrics holds cross-cutting HTTP pipeline collectors. Per-module
// collectors live next to their modules.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	AuthFailures    prometheus.Counter
	AccessDenials   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telehealth_http_request_duration_seconds",
			Help:    "HTTP request latency through the full pipeline",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telehealth_http_requests_total",
			Help: "HTTP requests handled, by method and status",
		}, []string{"method", "status"}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_auth_failures_total",
			Help: "Requests rejected with invalid or missing credentials",
		}),
		AccessDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_access_denials_total",
			Help: "Requests rejected by the role gate or policy engine",
		}),
	}
}

// Instrument wraps a handler to record request counts and latency.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		m.RequestsTotal.WithLabelValues(r.Method, status).Inc()
		m.RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) IncrementAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementAccessDenial() {
	if m == nil {
		return
	}
	m.AccessDenials.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
