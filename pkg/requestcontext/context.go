// Package requestcontext carries per-request metadata through context.Context.
// Keys are unexported types so other packages cannot collide with them.
package requestcontext

import (
	"context"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
)

type claimsKey struct{}
type tenantKey struct{}
type clientIPKey struct{}
type userAgentKey struct{}
type requestIDKey struct{}
type requestTimeKey struct{}

// WithClaims stores the authenticated subject's claims.
func WithClaims(ctx context.Context, claims identity.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims set by the auth middleware.
// The boolean is false when no authentication ran for this request.
func ClaimsFromContext(ctx context.Context) (identity.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(identity.Claims)
	return claims, ok
}

// WithTenant stores the resolved tenant for the request.
func WithTenant(ctx context.Context, t models.TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFromContext returns the tenant resolved for this request, if any.
func TenantFromContext(ctx context.Context) (models.TenantContext, bool) {
	t, ok := ctx.Value(tenantKey{}).(models.TenantContext)
	return t, ok
}

// WithClientIP stores the caller's IP as derived from forwarding headers.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// WithUserAgent stores the caller's User-Agent header.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

func UserAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

// WithRequestID stores the correlation id assigned to the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestTime stores the time the request was accepted.
func WithRequestTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// RequestTimeFromContext returns the request arrival time, falling back
// to time.Now when the middleware did not run.
func RequestTimeFromContext(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
