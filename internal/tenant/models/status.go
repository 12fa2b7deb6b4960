package models

// OrgStatus is the lifecycle state of an organization.
type OrgStatus string

const (
	OrgStatusActive   OrgStatus = "active"
	OrgStatusInactive OrgStatus = "inactive"
)

func (s OrgStatus) IsValid() bool {
	return s == OrgStatusActive || s == OrgStatusInactive
}

// CanTransitionTo reports whether the status may change to target.
// Only active <-> inactive transitions exist; same-state transitions
// are rejected so callers surface redundant admin actions.
func (s OrgStatus) CanTransitionTo(target OrgStatus) bool {
	if !target.IsValid() {
		return false
	}
	return s != target
}
