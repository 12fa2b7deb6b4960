package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/metrics"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// maxSniffBytes bounds how much of a request body the org guard will read
// looking for an org_id field.
const maxSniffBytes = 1 << 20

// DenialRecorder captures access-denied events for the audit trail.
type DenialRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// RBAC is the coarse role gate: resource derivation from the path, the
// static role table, the purpose-of-use mandate, and the cross-org guard on
// caller-supplied org identifiers. Fine-grained ABAC runs in handlers.
type RBAC struct {
	table    *authz.RouteTable
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder DenialRecorder
}

// RBACOption configures the role gate.
type RBACOption func(*RBAC)

// WithRBACMetrics attaches pipeline collectors.
func WithRBACMetrics(m *metrics.Metrics) RBACOption {
	return func(g *RBAC) {
		g.metrics = m
	}
}

// WithDenialRecorder audits every denial as a security event.
func WithDenialRecorder(r DenialRecorder) RBACOption {
	return func(g *RBAC) {
		g.recorder = r
	}
}

func NewRBAC(table *authz.RouteTable, logger *slog.Logger, opts ...RBACOption) *RBAC {
	g := &RBAC{table: table, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gate is the role-gate stage of the pipeline. It must run after
// authentication. Unknown paths fail closed.
func (g *RBAC) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, ok := requestcontext.ClaimsFromContext(ctx)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}

		action := authz.ActionForRequest(r.Method, r.URL.Path)

		resource, ok := g.table.ResourceForPath(r.URL.Path)
		if !ok {
			g.deny(ctx, w, resource, action, dErrors.New(dErrors.CodeForbidden, "unknown resource"))
			return
		}

		if claims.IsAnonymous() {
			req, ok := g.table.Requirement(resource)
			if !ok || !req.AnonymousAllowed {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
		} else {
			if err := g.table.CheckRole(claims, resource); err != nil {
				g.deny(ctx, w, resource, action, err)
				return
			}

			requestedOrg, restore, err := requestedOrgID(r)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			r.Body = restore
			if err := g.table.CheckOrgScope(claims, requestedOrg, resource); err != nil {
				g.deny(ctx, w, resource, action, err)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (g *RBAC) deny(ctx context.Context, w http.ResponseWriter, resource authz.Resource, action authz.Action, err error) {
	g.metrics.IncrementAccessDenial()
	g.logger.WarnContext(ctx, "request denied by role gate",
		"resource", string(resource),
		"action", string(action),
		"reason", dErrors.MessageOf(err),
		"request_id", requestcontext.RequestIDFromContext(ctx),
	)
	if g.recorder != nil {
		entry := audit.NewEntry(ctx, audit.ActionAccessDenied, resource)
		entry.Success = false
		entry.ErrorMessage = dErrors.MessageOf(err)
		g.recorder.Record(ctx, entry)
	}
	httputil.WriteError(w, err)
}

// requestedOrgID pulls any caller-supplied org identifier from the query
// string or a JSON body. The body is buffered and handed back so handlers
// can still read it.
func requestedOrgID(r *http.Request) (string, io.ReadCloser, error) {
	if org := r.URL.Query().Get("org_id"); org != "" {
		return org, r.Body, nil
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", r.Body, nil
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return "", r.Body, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes))
	r.Body.Close()
	restore := io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", restore, dErrors.New(dErrors.CodeBadRequest, "unreadable request body")
	}

	var probe struct {
		OrgID string `json:"org_id"`
	}
	// Non-JSON bodies simply carry no org identifier.
	_ = json.Unmarshal(raw, &probe)
	return probe.OrgID, restore, nil
}
