// Package service orchestrates organization administration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/sentinel"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

type OrgStore interface {
	CreateIfNameAvailable(ctx context.Context, o *models.Organization) error
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	Update(ctx context.Context, o *models.Organization) error
	List(ctx context.Context) ([]*models.Organization, error)
}

// Invalidator drops cached tenant snapshots after status changes so
// suspension takes effect on the next request instead of after TTL.
type Invalidator interface {
	Invalidate(orgID string)
}

// Service manages the organization lifecycle for admin callers.
type Service struct {
	orgs        OrgStore
	invalidator Invalidator
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(orgs OrgStore, opts ...Option) *Service {
	s := &Service{orgs: orgs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateOrganizationRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	HIPAACompliant bool   `json:"hipaa_compliant"`
	BAASigned      bool   `json:"baa_signed"`
}

func (s *Service) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*models.Organization, error) {
	name := strings.TrimSpace(req.Name)

	o, err := models.NewOrganization(uuid.NewString(), name, models.OrgType(req.Type), time.Now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
		}
		return nil, err
	}
	o.HIPAACompliant = req.HIPAACompliant
	o.BAASigned = req.BAASigned

	if err := s.orgs.CreateIfNameAvailable(ctx, o); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "organization name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	s.logAudit(ctx, "organization.created", "org_id", o.ID, "org_type", string(o.Type))
	if s.metrics != nil {
		s.metrics.IncrementOrganizationCreated()
	}
	return o, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	o, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return o, nil
}

func (s *Service) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// DeactivateOrganization suspends an organization. Requests scoped to it
// are rejected as soon as the resolver cache entry is invalidated.
func (s *Service) DeactivateOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return s.transition(ctx, id, "organization.deactivated", func(o *models.Organization) error {
		return o.Deactivate(time.Now())
	})
}

// ReactivateOrganization lifts a suspension.
func (s *Service) ReactivateOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return s.transition(ctx, id, "organization.reactivated", func(o *models.Organization) error {
		return o.Reactivate(time.Now())
	})
}

func (s *Service) transition(ctx context.Context, id, event string, apply func(*models.Organization) error) (*models.Organization, error) {
	o, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(o); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.orgs.Update(ctx, o); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update organization")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(o.ID)
	}
	s.logAudit(ctx, event, "org_id", o.ID, "status", string(o.Status))
	return o, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestIDFromContext(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
