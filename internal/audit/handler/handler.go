// Package handler exposes the audit log over HTTP for auditors and platform
// admins. Query results are already redacted at write time, so nothing here
// touches the PHI redactor.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

type Handler struct {
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Register mounts the audit routes. The role gate has already restricted
// access to SUPER_ADMIN, ADMIN, and AUDITOR by the time these run.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/events", h.searchEvents)
	r.Get("/audit/events/export", h.exportEvents)
}

func (h *Handler) searchEvents(w http.ResponseWriter, r *http.Request) {
	q, err := h.queryFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.recorder.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) exportEvents(w http.ResponseWriter, r *http.Request) {
	q, err := h.queryFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	out, err := h.recorder.Export(r.Context(), q, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-export.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// queryFromRequest parses filters and pins the org scope: everyone except
// SUPER_ADMIN only sees their own organization's trail.
func (h *Handler) queryFromRequest(r *http.Request) (audit.Query, error) {
	params := r.URL.Query()
	q := audit.Query{
		ActorID:    params.Get("actor_id"),
		OrgID:      params.Get("org_id"),
		Action:     params.Get("action"),
		Resource:   params.Get("resource"),
		ResourceID: params.Get("resource_id"),
		Cursor:     params.Get("cursor"),
	}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return audit.Query{}, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		q.Limit = limit
	}
	var err error
	if q.From, err = parseTime(params.Get("from")); err != nil {
		return audit.Query{}, err
	}
	if q.To, err = parseTime(params.Get("to")); err != nil {
		return audit.Query{}, err
	}

	claims, ok := requestcontext.ClaimsFromContext(r.Context())
	if !ok {
		return audit.Query{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !claims.Role.IsSuperAdmin() {
		q.OrgID = claims.OrgID
	}
	return q, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "timestamps must be RFC 3339")
	}
	return t, nil
}
