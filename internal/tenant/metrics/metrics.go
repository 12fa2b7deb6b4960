package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
// Tracks resolution latency and cache behavior on the request hot path.
type Metrics struct {
	ResolveDuration      prometheus.Histogram
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	ResolveErrors        prometheus.Counter
	OrganizationsCreated prometheus.Counter
}

// New creates a Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telehealth_tenant_resolve_duration_seconds",
			Help:    "Duration of tenant resolution (request critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_tenant_cache_hits_total",
			Help: "Total tenant resolutions served from the in-process cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_tenant_cache_misses_total",
			Help: "Total tenant resolutions that required a store lookup",
		}),
		ResolveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_tenant_resolve_errors_total",
			Help: "Total tenant resolutions that failed at the store",
		}),
		OrganizationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telehealth_organizations_created_total",
			Help: "Total number of organizations created",
		}),
	}
}

// ObserveResolve records the duration of a resolution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheHit()            { m.CacheHits.Inc() }
func (m *Metrics) IncrementCacheMiss()           { m.CacheMisses.Inc() }
func (m *Metrics) IncrementResolveError()        { m.ResolveErrors.Inc() }
func (m *Metrics) IncrementOrganizationCreated() { m.OrganizationsCreated.Inc() }
