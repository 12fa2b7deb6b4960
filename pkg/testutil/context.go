package testutil

import (
	"net/http"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// WithClaims attaches claims to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithClaims(req *http.Request, claims identity.Claims) *http.Request {
	return req.WithContext(requestcontext.WithClaims(req.Context(), claims))
}

// WithRole attaches claims for a same-org subject with the given role.
// OrgID defaults to "org-1" and the subject to "user-1".
func WithRole(req *http.Request, role identity.Role) *http.Request {
	return WithClaims(req, identity.Claims{
		Subject: "user-1",
		OrgID:   "org-1",
		Role:    role,
	})
}

// WithTenant attaches a resolved tenant snapshot to the request context.
func WithTenant(req *http.Request, tenant models.TenantContext) *http.Request {
	return req.WithContext(requestcontext.WithTenant(req.Context(), tenant))
}

// WithActiveTenant attaches an active tenant matching WithRole's default org.
func WithActiveTenant(req *http.Request) *http.Request {
	return WithTenant(req, models.TenantContext{
		OrgID:    "org-1",
		OrgType:  models.OrgTypeProvider,
		OrgName:  "Test Provider",
		IsActive: true,
	})
}

// WithClientIP attaches a client IP to the request context.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

// WithRequestID attaches a correlation id to the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
