// Package service implements the request rate limiter.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/models"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

// CounterStore is the atomic fixed-window counter the limiter rides on.
type CounterStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// Service decides whether a request may proceed. Authenticated callers
// are keyed per org+user; anonymous callers per source address.
type Service struct {
	store   CounterStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	limit   int
	window  time.Duration
}

type Option func(*Service)

// WithLimit overrides the per-window request budget.
func WithLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithWindow overrides the window length.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithMetrics attaches rate limit metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store CounterStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		limit:  DefaultLimit,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeyFor derives the counter key for a request. Claims win over the IP
// so authenticated users carry their budget across addresses.
func KeyFor(claims identity.Claims, hasClaims bool, ip string) string {
	if hasClaims && !claims.IsAnonymous() && claims.OrgID != "" {
		return models.IdentityKey(claims.OrgID, claims.Subject)
	}
	return models.IPKey(ip)
}

// Check consumes one request from the caller's budget. A store failure
// is returned as an internal error; the middleware fails open on it.
func (s *Service) Check(ctx context.Context, key string) (*models.RateLimitResult, error) {
	result, err := s.store.Allow(ctx, key, s.limit, s.window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreError()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if s.metrics != nil {
		if result.Allowed {
			s.metrics.IncrementAllowed()
		} else {
			s.metrics.IncrementRejected()
		}
	}
	if !result.Allowed {
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"limit", result.Limit,
			"retry_after", result.RetryAfter,
		)
	}
	return result, nil
}

// Reset clears the budget for a key. Admin and test hook.
func (s *Service) Reset(ctx context.Context, key string) error {
	return s.store.Reset(ctx, key)
}
