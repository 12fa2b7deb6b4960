// Package middleware applies the rate limiter to inbound requests.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/models"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/service"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/privacy"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// Limiter is the slice of the rate limit service the middleware needs.
type Limiter interface {
	Check(ctx context.Context, key string) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (testing and demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit enforces the per-caller request budget. The counter store
// being unreachable fails open: the request proceeds and the failure is
// logged, trading strictness for availability.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		claims, hasClaims := requestcontext.ClaimsFromContext(ctx)
		ip := requestcontext.ClientIPFromContext(ctx)

		key := service.KeyFor(claims, hasClaims, ip)
		result, err := m.limiter.Check(ctx, key)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
				"error", err,
				"ip_prefix", privacy.AnonymizeIP(ip),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, please retry later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
