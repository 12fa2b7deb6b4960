// Package authz contains the coarse role gate and the fine-grained ABAC
// policy engine. Both are pure functions over their inputs: no I/O, no
// persistent state, so every decision is idempotent and exhaustively
// testable.
package authz

import "github.com/cerberus100/Telehealthcrm-sub001/internal/identity"

// Resource is the closed set of protected resource kinds.
type Resource string

const (
	ResourceConsult            Resource = "consult"
	ResourceRx                 Resource = "rx"
	ResourceLabOrder           Resource = "lab_order"
	ResourceLabResult          Resource = "lab_result"
	ResourceShipment           Resource = "shipment"
	ResourcePatient            Resource = "patient"
	ResourceUser               Resource = "user"
	ResourceAuth               Resource = "auth"
	ResourceHealth             Resource = "health"
	ResourceNotification       Resource = "notification"
	ResourceOrganization       Resource = "organization"
	ResourceAnalytics          Resource = "analytics"
	ResourceOperationalMetrics Resource = "operational_metrics"
	ResourceAuditLog           Resource = "audit_log"
)

// IsValid checks if the resource is one of the supported enum values.
func (r Resource) IsValid() bool {
	switch r {
	case ResourceConsult, ResourceRx, ResourceLabOrder, ResourceLabResult,
		ResourceShipment, ResourcePatient, ResourceUser, ResourceAuth,
		ResourceHealth, ResourceNotification, ResourceOrganization,
		ResourceAnalytics, ResourceOperationalMetrics, ResourceAuditLog:
		return true
	}
	return false
}

// IsPHICategory reports whether reads of this resource touch regulated
// health data. The audit recorder flags PHI reads lacking a purpose of use.
func (r Resource) IsPHICategory() bool {
	switch r {
	case ResourcePatient, ResourceConsult, ResourceLabResult, ResourceRx:
		return true
	}
	return false
}

// Action is the closed set of operations on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
	ActionLogout Action = "logout"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionList, ActionUpdate, ActionCreate, ActionDelete, ActionLogout:
		return true
	}
	return false
}

// IsReadOnly reports whether the action cannot mutate state.
func (a Action) IsReadOnly() bool {
	return a == ActionRead || a == ActionList
}

// AccessRequest carries everything the policy engine needs for one decision.
type AccessRequest struct {
	Subject       identity.Claims
	Resource      Resource
	Action        Action
	ResourceOrgID string // optional; empty means same-org by construction
}

// AccessDecision is the terminal outcome of an ABAC evaluation. It is never
// persisted; the audit recorder captures the surrounding operation instead.
//
// MaskFields only accompanies Allowed=true: masking narrows a permitted
// response, it never substitutes for denial.
type AccessDecision struct {
	Allowed    bool
	MaskFields []string
	Reason     string
}

func allow() AccessDecision {
	return AccessDecision{Allowed: true}
}

func allowMasked(fields ...string) AccessDecision {
	return AccessDecision{Allowed: true, MaskFields: fields}
}

func deny(reason string) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}
