package models

import (
	"time"

	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
)

// OrgType categorizes an organization by the part of the care pipeline
// it participates in. Authorization decisions key off the actor's role,
// not the org type, but the type is surfaced to downstream services.
type OrgType string

const (
	OrgTypeProvider OrgType = "PROVIDER"
	OrgTypeLab      OrgType = "LAB"
	OrgTypePharmacy OrgType = "PHARMACY"
	OrgTypeMarketer OrgType = "MARKETER"
	OrgTypePlatform OrgType = "PLATFORM"
)

func (t OrgType) IsValid() bool {
	switch t {
	case OrgTypeProvider, OrgTypeLab, OrgTypePharmacy, OrgTypeMarketer, OrgTypePlatform:
		return true
	}
	return false
}

// Organization is the aggregate root for a tenant organization.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Type is one of the declared OrgType values
//   - Status transitions: active <-> inactive only
//   - CreatedAt is immutable after construction
//
// # Deactivation Invariant
//
// When an organization is deactivated, every request scoped to it MUST
// be rejected at the tenant middleware, even when the caller presents a
// valid token. Enforcement lives in the resolver consumers rather than
// in token revocation, so suspension takes effect on the next request
// without touching issued credentials.
type Organization struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           OrgType   `json:"type"`
	Status         OrgStatus `json:"status"`
	HIPAACompliant bool      `json:"hipaa_compliant"`
	BAASigned      bool      `json:"baa_signed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (o *Organization) IsActive() bool {
	return o.Status == OrgStatusActive
}

// CanDeactivate checks if the organization can transition to inactive.
func (o *Organization) CanDeactivate() error {
	if !o.Status.CanTransitionTo(OrgStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already inactive")
	}
	return nil
}

// Deactivate validates and applies deactivation in one call.
func (o *Organization) Deactivate(now time.Time) error {
	if err := o.CanDeactivate(); err != nil {
		return err
	}
	o.Status = OrgStatusInactive
	o.UpdatedAt = now
	return nil
}

// CanReactivate checks if the organization can transition to active.
func (o *Organization) CanReactivate() error {
	if !o.Status.CanTransitionTo(OrgStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already active")
	}
	return nil
}

// Reactivate validates and applies reactivation in one call.
func (o *Organization) Reactivate(now time.Time) error {
	if err := o.CanReactivate(); err != nil {
		return err
	}
	o.Status = OrgStatusActive
	o.UpdatedAt = now
	return nil
}

func NewOrganization(id, name string, orgType OrgType, now time.Time) (*Organization, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization id cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name must be 128 characters or less")
	}
	if !orgType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown organization type")
	}
	return &Organization{
		ID:        id,
		Name:      name,
		Type:      orgType,
		Status:    OrgStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TenantContext is the request-scoped snapshot of a resolved
// organization. It carries only what the authorization pipeline and
// response headers need, never the full aggregate.
type TenantContext struct {
	OrgID          string  `json:"org_id"`
	OrgType        OrgType `json:"org_type"`
	OrgName        string  `json:"org_name"`
	IsActive       bool    `json:"is_active"`
	HIPAACompliant bool    `json:"hipaa_compliant"`
	BAASigned      bool    `json:"baa_signed"`
}

// Snapshot derives the request-scoped view from the aggregate.
func (o *Organization) Snapshot() TenantContext {
	return TenantContext{
		OrgID:          o.ID,
		OrgType:        o.Type,
		OrgName:        o.Name,
		IsActive:       o.IsActive(),
		HIPAACompliant: o.HIPAACompliant,
		BAASigned:      o.BAASigned,
	}
}
