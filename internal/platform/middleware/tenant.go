package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// TenantResolver loads the organization snapshot for an org ID.
type TenantResolver interface {
	Resolve(ctx context.Context, orgID string) (models.TenantContext, error)
}

// Tenant resolves the caller's organization and fails closed: an org that
// cannot be resolved, or one that has been deactivated, terminates the
// request here. Deactivation takes effect without waiting for tokens to
// expire because every request passes through this stage.
type Tenant struct {
	resolver TenantResolver
	logger   *slog.Logger
}

func NewTenant(resolver TenantResolver, logger *slog.Logger) *Tenant {
	return &Tenant{resolver: resolver, logger: logger}
}

// ResolveTenant is the tenant stage of the pipeline. It must run after
// authentication. Anonymous callers carry no org and skip resolution.
func (t *Tenant) ResolveTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, ok := requestcontext.ClaimsFromContext(ctx)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		if claims.IsAnonymous() || claims.OrgID == "" {
			next.ServeHTTP(w, r)
			return
		}

		tenant, err := t.resolver.Resolve(ctx, claims.OrgID)
		if err != nil {
			t.logger.WarnContext(ctx, "tenant resolution failed",
				"org_id", claims.OrgID,
				"error", err,
				"request_id", requestcontext.RequestIDFromContext(ctx),
			)
			httputil.WriteError(w, err)
			return
		}

		if !tenant.IsActive {
			httputil.WriteError(w, dErrors.New(dErrors.CodeTenantInactive, "organization is deactivated"))
			return
		}

		w.Header().Set("X-Tenant-ID", tenant.OrgID)
		w.Header().Set("X-Tenant-Type", string(tenant.OrgType))
		w.Header().Set("X-Tenant-Name", tenant.OrgName)

		next.ServeHTTP(w, r.WithContext(requestcontext.WithTenant(ctx, tenant)))
	})
}
