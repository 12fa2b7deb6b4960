// Package resolver turns an organization id into the request-scoped
// tenant snapshot consumed by the authorization pipeline.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/sentinel"
)

// DefaultTTL bounds how long a resolved snapshot may serve requests
// before the store is consulted again. Deactivations therefore take at
// most this long to propagate unless Invalidate is called.
const DefaultTTL = 5 * time.Minute

// Store is the subset of the organization store the resolver needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

type cacheEntry struct {
	snapshot  models.TenantContext
	expiresAt time.Time
}

// Resolver caches organization snapshots with a TTL and collapses
// concurrent lookups for the same organization into one store call.
type Resolver struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type Option func(*Resolver)

// WithTTL overrides the cache TTL. Zero or negative disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithMetrics attaches tenant module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		logger: logger,
		ttl:    DefaultTTL,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant snapshot for orgID. Unknown organizations
// fail with a not-found error and store failures fail closed; callers
// must not grant access on any error.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (models.TenantContext, error) {
	if orgID == "" {
		return models.TenantContext{}, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}

	start := r.now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveResolve(start)
		}
	}()

	if snapshot, ok := r.cached(orgID); ok {
		if r.metrics != nil {
			r.metrics.IncrementCacheHit()
		}
		return snapshot, nil
	}
	if r.metrics != nil {
		r.metrics.IncrementCacheMiss()
	}

	v, err, _ := r.group.Do(orgID, func() (any, error) {
		return r.load(ctx, orgID)
	})
	if err != nil {
		return models.TenantContext{}, err
	}
	return v.(models.TenantContext), nil
}

func (r *Resolver) load(ctx context.Context, orgID string) (models.TenantContext, error) {
	org, err := r.store.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TenantContext{}, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		if r.metrics != nil {
			r.metrics.IncrementResolveError()
		}
		r.logger.ErrorContext(ctx, "tenant store lookup failed",
			"org_id", orgID,
			"error", err,
		)
		return models.TenantContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve organization")
	}

	snapshot := org.Snapshot()
	r.put(orgID, snapshot)
	return snapshot, nil
}

func (r *Resolver) cached(orgID string) (models.TenantContext, bool) {
	if r.ttl <= 0 {
		return models.TenantContext{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[orgID]
	if !ok || r.now().After(entry.expiresAt) {
		return models.TenantContext{}, false
	}
	return entry.snapshot, true
}

func (r *Resolver) put(orgID string, snapshot models.TenantContext) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[orgID] = cacheEntry{snapshot: snapshot, expiresAt: r.now().Add(r.ttl)}
}

// Invalidate drops the cached snapshot for one organization. Call after
// admin status changes so suspension takes effect on the next request.
func (r *Resolver) Invalidate(orgID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, orgID)
}

// InvalidateAll drops every cached snapshot.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cacheEntry)
}
