package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsAllowed  prometheus.Counter
	RequestsRejected prometheus.Counter
	StoreErrors      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_ratelimit_requests_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_ratelimit_requests_rejected_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_ratelimit_store_errors_total",
			Help: "Total number of counter store failures (limiter failed open)",
		}),
	}
}

func (m *Metrics) IncrementAllowed()    { m.RequestsAllowed.Inc() }
func (m *Metrics) IncrementRejected()   { m.RequestsRejected.Inc() }
func (m *Metrics) IncrementStoreError() { m.StoreErrors.Inc() }
