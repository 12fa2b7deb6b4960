// Package handler wires admin-facing organization endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/service"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/httputil"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the organization routes. Callers are expected to have
// already applied auth and role gating; these handlers only do work.
func (h *Handler) Register(r chi.Router) {
	r.Post("/organizations", h.createOrganization)
	r.Get("/organizations", h.listOrganizations)
	r.Get("/organizations/{orgID}", h.getOrganization)
	r.Post("/organizations/{orgID}/deactivate", h.deactivateOrganization)
	r.Post("/organizations/{orgID}/reactivate", h.reactivateOrganization)
}

type organizationResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	HIPAACompliant bool   `json:"hipaa_compliant"`
	BAASigned      bool   `json:"baa_signed"`
}

func toResponse(o *models.Organization) organizationResponse {
	return organizationResponse{
		ID:             o.ID,
		Name:           o.Name,
		Type:           string(o.Type),
		Status:         string(o.Status),
		HIPAACompliant: o.HIPAACompliant,
		BAASigned:      o.BAASigned,
	}
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	o, err := h.svc.CreateOrganization(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(o))
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.ListOrganizations(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]organizationResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (h *Handler) deactivateOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.DeactivateOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (h *Handler) reactivateOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.ReactivateOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(o))
}
