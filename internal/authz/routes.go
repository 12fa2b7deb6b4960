package authz

import (
	"net/http"
	"strings"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
)

// Requirement is the static RBAC rule for a resource: which roles may reach
// its routes at all, whether a purpose of use must accompany the request,
// whether requests naming a foreign org are ever acceptable, and whether
// unauthenticated callers may reach it in non-production environments.
// Fine-grained allow/deny and field masking happen later in Evaluate.
type Requirement struct {
	RequiredRoles    []identity.Role
	PurposeRequired  bool
	CrossOrgAllowed  bool
	AnonymousAllowed bool
}

// RouteTable maps resources to their access requirements. It is resolved
// once at startup, never at request time.
type RouteTable struct {
	requirements map[Resource]Requirement
	pathResource map[string]Resource
}

var allRoles = []identity.Role{
	identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
	identity.RoleDoctor, identity.RolePharmacist, identity.RoleLabTech,
	identity.RoleMarketer, identity.RoleMarketerAdmin, identity.RoleSupport,
	identity.RoleAuditor,
}

// NewRouteTable builds the default route registration table.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		requirements: map[Resource]Requirement{
			ResourceHealth: {RequiredRoles: allRoles, CrossOrgAllowed: true, AnonymousAllowed: true},
			ResourceAuth:   {RequiredRoles: allRoles, CrossOrgAllowed: true, AnonymousAllowed: true},
			ResourceConsult: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
				identity.RoleDoctor, identity.RoleSupport, identity.RoleAuditor,
				identity.RoleMarketer, identity.RoleMarketerAdmin,
			}},
			ResourceRx: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleDoctor,
				identity.RolePharmacist, identity.RoleAuditor,
			}},
			ResourceLabOrder: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleDoctor,
				identity.RoleLabTech, identity.RoleAuditor,
			}},
			ResourceLabResult: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleDoctor,
				identity.RoleLabTech, identity.RoleAuditor,
			}},
			ResourceShipment: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
				identity.RoleDoctor, identity.RoleLabTech, identity.RoleMarketer,
				identity.RoleMarketerAdmin, identity.RoleSupport, identity.RoleAuditor,
			}},
			ResourcePatient: {
				RequiredRoles: []identity.Role{
					identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
					identity.RoleDoctor, identity.RoleSupport, identity.RoleAuditor,
				},
				PurposeRequired: true,
			},
			ResourceUser: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
				identity.RoleAuditor,
			}},
			ResourceNotification: {RequiredRoles: allRoles},
			ResourceOrganization: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
				identity.RoleAuditor,
			}},
			ResourceAnalytics: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleOrgAdmin,
				identity.RoleMarketer, identity.RoleMarketerAdmin,
				identity.RolePharmacist, identity.RoleLabTech, identity.RoleAuditor,
			}},
			ResourceOperationalMetrics: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin,
			}},
			ResourceAuditLog: {RequiredRoles: []identity.Role{
				identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleAuditor,
			}},
		},
		pathResource: map[string]Resource{
			"consults":      ResourceConsult,
			"rx":            ResourceRx,
			"prescriptions": ResourceRx,
			"lab-orders":    ResourceLabOrder,
			"lab-results":   ResourceLabResult,
			"shipments":     ResourceShipment,
			"patients":      ResourcePatient,
			"users":         ResourceUser,
			"auth":          ResourceAuth,
			"health":        ResourceHealth,
			"notifications": ResourceNotification,
			"organizations": ResourceOrganization,
			"analytics":     ResourceAnalytics,
			"ops-metrics":   ResourceOperationalMetrics,
			"audit":         ResourceAuditLog,
		},
	}
}

// ResourceForPath derives the protected resource from the request path's
// first segment. Admin-prefixed routes fall under the resource that follows
// the prefix ("/admin/users" gates like User).
func (t *RouteTable) ResourceForPath(path string) (Resource, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", false
	}
	first := segments[0]
	if first == "admin" && len(segments) > 1 {
		first = segments[1]
	}
	res, ok := t.pathResource[first]
	return res, ok
}

// ActionForRequest derives the action from the HTTP verb. GET on a bare
// collection is a list; GET with a trailing identifier is a read. The
// logout route is its own action so the gate can treat it as public-ish.
func ActionForRequest(method, path string) Action {
	if strings.HasSuffix(strings.TrimRight(path, "/"), "/logout") {
		return ActionLogout
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		segments := strings.Split(strings.Trim(path, "/"), "/")
		if len(segments) <= 1 || (segments[0] == "admin" && len(segments) <= 2) {
			return ActionList
		}
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

// Requirement returns the rule for a resource. Unknown resources fail
// closed with a nil=false second return.
func (t *RouteTable) Requirement(resource Resource) (Requirement, bool) {
	req, ok := t.requirements[resource]
	return req, ok
}

// CheckRole enforces the coarse role gate and the purpose-of-use mandate
// for the given subject and resource.
func (t *RouteTable) CheckRole(subject identity.Claims, resource Resource) error {
	req, ok := t.requirements[resource]
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "no access rule for resource")
	}
	if !roleAllowed(req.RequiredRoles, subject.Role) {
		return dErrors.New(dErrors.CodeForbidden, "role not permitted for resource")
	}
	if req.PurposeRequired && subject.PurposeOfUse == "" {
		return dErrors.New(dErrors.CodeForbidden, "purpose of use is required for this resource")
	}
	return nil
}

// CheckOrgScope enforces the cross-org guard: any org identifier supplied by
// the caller must match their own org unless they hold SUPER_ADMIN.
func (t *RouteTable) CheckOrgScope(subject identity.Claims, requestedOrgID string, resource Resource) error {
	if requestedOrgID == "" || requestedOrgID == subject.OrgID {
		return nil
	}
	if subject.Role.IsSuperAdmin() {
		return nil
	}
	if req, ok := t.requirements[resource]; ok && req.CrossOrgAllowed {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "org identifier does not match caller's organization")
}

func roleAllowed(roles []identity.Role, role identity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
