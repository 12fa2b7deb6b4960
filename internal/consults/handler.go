// Package consults is a thin read surface over consult records. It exists to
// carry the full pipeline end to end: the policy engine decides, field masks
// narrow the payload, and every read lands in the audit trail.
package consults

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

// Consult is the demonstration record. Patient is nested so masking a single
// path removes the whole clinical identity.
type Consult struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Status      string    `json:"status"`
	ReasonCodes []string  `json:"reason_codes,omitempty"`
	Patient     *Patient  `json:"patient,omitempty"`
	CreatedFrom string    `json:"created_from,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Recorder is the audit write dependency.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Handler struct {
	recorder Recorder
	logger   *slog.Logger
	fixtures []Consult
}

func New(recorder Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		recorder: recorder,
		logger:   logger,
		fixtures: demoConsults(),
	}
}

// Register mounts the consult routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/consults", h.listConsults)
	r.Get("/consults/{consultID}", h.getConsult)
}

func (h *Handler) listConsults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := requestcontext.ClaimsFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	decision := authz.Evaluate(authz.AccessRequest{
		Subject:  claims,
		Resource: authz.ResourceConsult,
		Action:   authz.ActionList,
	})
	if !decision.Allowed {
		h.recordRead(ctx, audit.ActionList, "", false, decision.Reason)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, decision.Reason))
		return
	}

	var out []map[string]any
	for _, c := range h.fixtures {
		if c.OrgID != claims.OrgID && !claims.Role.IsSuperAdmin() {
			continue
		}
		out = append(out, maskConsult(c, decision.MaskFields))
	}

	h.recordRead(ctx, audit.ActionList, "", true, "")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consults": out})
}

func (h *Handler) getConsult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := requestcontext.ClaimsFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	consultID := chi.URLParam(r, "consultID")

	var target *Consult
	for i := range h.fixtures {
		if h.fixtures[i].ID == consultID {
			target = &h.fixtures[i]
			break
		}
	}
	if target == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "consult not found"))
		return
	}

	decision := authz.Evaluate(authz.AccessRequest{
		Subject:       claims,
		Resource:      authz.ResourceConsult,
		Action:        authz.ActionRead,
		ResourceOrgID: target.OrgID,
	})
	if !decision.Allowed {
		h.recordRead(ctx, audit.ActionRead, consultID, false, decision.Reason)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, decision.Reason))
		return
	}

	h.recordRead(ctx, audit.ActionRead, consultID, true, "")
	httputil.WriteJSON(w, http.StatusOK, maskConsult(*target, decision.MaskFields))
}

func (h *Handler) recordRead(ctx context.Context, action, resourceID string, success bool, reason string) {
	entry := audit.NewEntry(ctx, action, authz.ResourceConsult)
	entry.ResourceID = resourceID
	entry.Success = success
	entry.ErrorMessage = reason
	h.recorder.Record(ctx, entry)
}

// maskConsult renders the consult with the decision's mask fields removed.
// Masks narrow an allowed response; they never substitute for denial.
func maskConsult(c Consult, maskFields []string) map[string]any {
	out := map[string]any{
		"id":         c.ID,
		"org_id":     c.OrgID,
		"status":     c.Status,
		"created_at": c.CreatedAt,
	}
	if len(c.ReasonCodes) > 0 {
		out["reason_codes"] = c.ReasonCodes
	}
	if c.Patient != nil {
		out["patient"] = map[string]any{
			"name":  c.Patient.Name,
			"email": c.Patient.Email,
			"phone": c.Patient.Phone,
		}
	}
	if c.CreatedFrom != "" {
		out["created_from"] = c.CreatedFrom
	}
	for _, field := range maskFields {
		delete(out, field)
	}
	return out
}

func demoConsults() []Consult {
	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	return []Consult{
		{
			ID:          "con-1001",
			OrgID:       "org-provider-demo",
			Status:      "PASSED",
			ReasonCodes: []string{"R11", "R45"},
			Patient:     &Patient{Name: "Alice Carter", Email: "alice.carter@gmail.com", Phone: "555-201-7733"},
			CreatedFrom: "web-intake",
			CreatedAt:   created,
		},
		{
			ID:          "con-1002",
			OrgID:       "org-provider-demo",
			Status:      "PENDING",
			ReasonCodes: []string{"R02"},
			Patient:     &Patient{Name: "Bruno Diaz", Email: "bruno.diaz@gmail.com", Phone: "555-443-9021"},
			CreatedFrom: "partner-api",
			CreatedAt:   created.Add(26 * time.Hour),
		},
		{
			ID:        "con-2001",
			OrgID:     "org-marketer-demo",
			Status:    "APPROVED",
			Patient:   &Patient{Name: "Carol Hughes", Email: "carol.hughes@gmail.com", Phone: "555-090-1187"},
			CreatedAt: created.Add(48 * time.Hour),
		},
	}
}
