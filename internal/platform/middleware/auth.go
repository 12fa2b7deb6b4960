package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/metrics"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// Validator verifies a bearer token and returns its claims.
type Validator interface {
	ValidateToken(tokenString string) (identity.Claims, error)
}

// publicRoutes may be reached without credentials outside production. The
// caller is substituted with anonymous low-privilege claims.
var publicRoutes = map[string]struct{}{
	"/health":            {},
	"/auth/login":        {},
	"/auth/refresh":      {},
	"/auth/logout":       {},
	"/auth/verify-email": {},
}

// Auth authenticates every request and places the caller's claims in the
// context. It fails closed: any credential problem is a 401, and nothing
// downstream runs without claims.
type Auth struct {
	validator     Validator
	logger        *slog.Logger
	metrics       *metrics.Metrics
	production    bool
	devSecretHash string
}

// AuthOption configures the Auth middleware.
type AuthOption func(*Auth)

// WithProduction disables the anonymous public-route fallback and the dev
// auth header.
func WithProduction(production bool) AuthOption {
	return func(a *Auth) {
		a.production = production
	}
}

// WithDevAuthSecret enables the development-only header fallback, guarded by
// a bcrypt hash of the shared secret.
func WithDevAuthSecret(hash string) AuthOption {
	return func(a *Auth) {
		a.devSecretHash = hash
	}
}

// WithAuthMetrics attaches pipeline collectors.
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(a *Auth) {
		a.metrics = m
	}
}

func NewAuth(validator Validator, logger *slog.Logger, opts ...AuthOption) *Auth {
	a := &Auth{validator: validator, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequireAuth is the authentication stage of the pipeline.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			claims, err := a.validator.ValidateToken(token)
			if err != nil {
				a.metrics.IncrementAuthFailure()
				a.logger.WarnContext(ctx, "request rejected, invalid token",
					"error", err,
					"request_id", requestcontext.RequestIDFromContext(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithClaims(ctx, claims)))
			return
		}

		if !a.production {
			if claims, ok := a.devHeaderClaims(r); ok {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithClaims(ctx, claims)))
				return
			}
			if _, ok := publicRoutes[strings.TrimRight(r.URL.Path, "/")]; ok {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithClaims(ctx, identity.Anonymous())))
				return
			}
		}

		a.metrics.IncrementAuthFailure()
		a.logger.WarnContext(ctx, "request rejected, missing credentials",
			"request_id", requestcontext.RequestIDFromContext(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	})
}

// devHeaderClaims accepts X-Dev-* headers when the shared secret matches the
// configured bcrypt hash. Local tooling only; never enabled in production.
func (a *Auth) devHeaderClaims(r *http.Request) (identity.Claims, bool) {
	if a.devSecretHash == "" {
		return identity.Claims{}, false
	}
	secret := r.Header.Get("X-Dev-Secret")
	if secret == "" {
		return identity.Claims{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(a.devSecretHash), []byte(secret)) != nil {
		a.logger.Warn("dev auth header rejected, secret mismatch")
		return identity.Claims{}, false
	}

	role := identity.Role(r.Header.Get("X-Dev-Role"))
	if !role.IsValid() {
		return identity.Claims{}, false
	}
	subject := r.Header.Get("X-Dev-User")
	orgID := r.Header.Get("X-Dev-Org")
	if subject == "" || orgID == "" {
		return identity.Claims{}, false
	}
	return identity.Claims{
		Subject:      subject,
		OrgID:        orgID,
		Role:         role,
		PurposeOfUse: r.Header.Get("X-Dev-Purpose"),
	}, true
}
