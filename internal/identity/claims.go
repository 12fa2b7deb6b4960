package identity

import dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"

// Role is the closed set of caller roles. Anything outside this set is
// rejected at token validation; the ABAC engine additionally denies any
// role it does not recognize.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleOrgAdmin      Role = "ORG_ADMIN"
	RoleDoctor        Role = "DOCTOR"
	RolePharmacist    Role = "PHARMACIST"
	RoleLabTech       Role = "LAB_TECH"
	RoleMarketer      Role = "MARKETER"
	RoleMarketerAdmin Role = "MARKETER_ADMIN"
	RoleSupport       Role = "SUPPORT"
	RoleAuditor       Role = "AUDITOR"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOrgAdmin, RoleDoctor, RolePharmacist,
		RoleLabTech, RoleMarketer, RoleMarketerAdmin, RoleSupport, RoleAuditor:
		return true
	}
	return false
}

// IsSuperAdmin reports whether the role may cross organization boundaries.
// Only SUPER_ADMIN qualifies; admin-equivalent roles stay org-scoped.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// ParseRole validates a raw role string from a token claim.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "unknown role in credential")
	}
	return r, nil
}

// Claims is the per-request identity record assembled once by the claims
// middleware and treated as immutable afterwards.
//
// Invariants:
//   - Subject and OrgID are non-empty for authenticated callers
//   - Role is a member of the closed Role enum
//   - PurposeOfUse is optional; its absence for PHI reads is flagged by the
//     audit recorder's heuristics, not here
type Claims struct {
	Subject      string
	OrgID        string
	Role         Role
	PurposeOfUse string
	Groups       []string
	MFAEnabled   bool
}

// Anonymous returns the low-privilege claims substituted for public routes
// in non-production configuration when no credential is presented.
func Anonymous() Claims {
	return Claims{
		Subject: "anonymous",
		OrgID:   "",
		Role:    RoleSupport,
	}
}

// IsAnonymous reports whether the claims are the public-route substitute.
func (c Claims) IsAnonymous() bool {
	return c.Subject == "anonymous" && c.OrgID == ""
}
