// Package httpapi assembles the request pipeline and mounts every handler.
//
// Stage order is fixed: request ID and client metadata first so every later
// stage can log and audit with correlation, then authentication, the role
// gate, tenant resolution, and rate limiting. Handlers behind the pipeline
// run their own ABAC decisions and audit writes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	audithandler "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/handler"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/consults"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/middleware"
	ratelimitmw "github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/middleware"
	tenanthandler "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/handler"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// Version is stamped at build time.
var Version = "dev"

// HealthChecker reports on a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router wires together.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Auth      *middleware.Auth
	Tenant    *middleware.Tenant
	RBAC      *middleware.RBAC
	RateLimit *ratelimitmw.Middleware
	Recorder  *audit.Recorder

	Organizations *tenanthandler.Handler
	AuditLog      *audithandler.Handler
	Consults      *consults.Handler

	// Redis is optional; health reports it only when configured.
	Redis HealthChecker
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Operational endpoints sit outside the authenticated pipeline.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/version", versionHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.ClientMetadata)
		if d.Metrics != nil {
			r.Use(d.Metrics.Instrument)
		}
		r.Use(d.Auth.RequireAuth)
		r.Use(d.RBAC.Gate)
		r.Use(d.Tenant.ResolveTenant)
		r.Use(d.RateLimit.RateLimit)

		r.Get("/health", d.healthHandler())
		r.Post("/auth/logout", d.logoutHandler())

		d.Organizations.Register(r)
		d.AuditLog.Register(r)
		d.Consults.Register(r)

		// Catch-all so unregistered paths still traverse authentication
		// and the role gate. chi skips group middleware for unmatched
		// routes, which would let unknown paths bypass the pipeline.
		r.HandleFunc("/*", notFoundHandler)
	})

	return r
}

func (d Deps) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if d.Redis != nil {
			if err := d.Redis.Health(r.Context()); err != nil {
				body["redis"] = "unavailable"
			} else {
				body["redis"] = "ok"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "resource not found"))
}

func (d Deps) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if claims, ok := requestcontext.ClaimsFromContext(ctx); ok && !claims.IsAnonymous() {
			d.Recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionLogout, authz.ResourceAuth))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
