package authz

import "github.com/cerberus100/Telehealthcrm-sub001/internal/identity"

// Field masks returned with allow decisions for marketing callers. Handlers
// strip these paths from responses before serialization.
var (
	marketerConsultMask = []string{"reason_codes", "patient", "created_from"}

	marketerShipmentMask = []string{
		"ship_to_name",
		"ship_to_phone",
		"ship_to_street",
		"ship_to_city",
		"ship_to_state",
		"ship_to_zip",
	}
)

// Evaluate is the ABAC policy engine: a pure decision over subject
// attributes, target resource, action, and the resource's owning org.
//
// Evaluation order:
//  1. Cross-org guard. A populated ResourceOrgID that differs from the
//     subject's org denies immediately unless the subject is SUPER_ADMIN.
//  2. Role normalization. ORG_ADMIN and MARKETER_ADMIN collapse into the
//     admin-equivalent tier for dispatch.
//  3. Role-specific rules. Ambiguity resolves toward denial; masks are only
//     ever attached to allows.
func Evaluate(req AccessRequest) AccessDecision {
	subject := req.Subject

	if req.ResourceOrgID != "" && req.ResourceOrgID != subject.OrgID && !subject.Role.IsSuperAdmin() {
		return deny("cross-tenant access denied")
	}

	switch subject.Role {
	case identity.RoleMarketer:
		return evaluateMarketer(req)
	case identity.RolePharmacist:
		return evaluatePharmacist(req)
	case identity.RoleLabTech:
		return evaluateLabTech(req)
	case identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
		identity.RoleMarketerAdmin, identity.RoleDoctor, identity.RoleSupport,
		identity.RoleAuditor:
		return evaluateAdminTier(req)
	default:
		return deny("unrecognized role")
	}
}

// evaluateMarketer allows a narrow read surface with PHI fields masked.
// Marketers see logistics and engagement data, never clinical content.
func evaluateMarketer(req AccessRequest) AccessDecision {
	switch req.Resource {
	case ResourceConsult:
		if req.Action.IsReadOnly() {
			return allowMasked(marketerConsultMask...)
		}
		return deny("marketers cannot modify consults")
	case ResourceShipment:
		if req.Action.IsReadOnly() {
			return allowMasked(marketerShipmentMask...)
		}
		return deny("marketers cannot modify shipments")
	case ResourceHealth, ResourceNotification, ResourceAnalytics:
		if req.Action == ActionRead {
			return allow()
		}
		return deny("marketers have read-only access to " + string(req.Resource))
	case ResourceOperationalMetrics:
		return deny("operational metrics restricted to platform admins")
	default:
		return deny("marketers cannot access " + string(req.Resource))
	}
}

func evaluatePharmacist(req AccessRequest) AccessDecision {
	switch req.Resource {
	case ResourceRx:
		return allow()
	case ResourceLabResult:
		return deny("pharmacists cannot access lab results")
	case ResourceOperationalMetrics:
		return deny("operational metrics restricted to platform admins")
	default:
		return allow()
	}
}

func evaluateLabTech(req AccessRequest) AccessDecision {
	switch req.Resource {
	case ResourceLabOrder, ResourceLabResult, ResourceShipment:
		return allow()
	case ResourceRx:
		return deny("lab technicians cannot access prescriptions")
	case ResourceOperationalMetrics:
		return deny("operational metrics restricted to platform admins")
	default:
		return allow()
	}
}

// evaluateAdminTier covers SUPER_ADMIN, ADMIN, the admin-equivalent org
// roles, DOCTOR, SUPPORT, and AUDITOR.
func evaluateAdminTier(req AccessRequest) AccessDecision {
	if req.Subject.Role == identity.RoleAuditor && !req.Action.IsReadOnly() {
		return deny("auditor access is read-only")
	}

	if req.Resource == ResourceOperationalMetrics {
		switch req.Subject.Role {
		case identity.RoleSuperAdmin, identity.RoleAdmin:
			return allow()
		default:
			return deny("operational metrics restricted to platform admins")
		}
	}

	return allow()
}
