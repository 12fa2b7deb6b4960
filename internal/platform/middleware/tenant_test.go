package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/testutil"
)

type fakeResolver struct {
	tenants map[string]models.TenantContext
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, orgID string) (models.TenantContext, error) {
	if f.err != nil {
		return models.TenantContext{}, f.err
	}
	tc, ok := f.tenants[orgID]
	if !ok {
		return models.TenantContext{}, dErrors.New(dErrors.CodeNotFound, "organization not found")
	}
	return tc, nil
}

func doctorRequest(t *testing.T, orgID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/consults", nil)
	return testutil.WithClaims(req, identity.Claims{Subject: "doc-1", OrgID: orgID, Role: identity.RoleDoctor})
}

func TestTenantResolvesActiveOrg(t *testing.T) {
	resolver := &fakeResolver{tenants: map[string]models.TenantContext{
		"org-1": {OrgID: "org-1", OrgType: models.OrgTypeProvider, OrgName: "Acme Health", IsActive: true},
	}}
	tm := NewTenant(resolver, testutil.DiscardLogger())

	var got models.TenantContext
	var found bool
	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = requestcontext.TenantFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, doctorRequest(t, "org-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !found || got.OrgID != "org-1" {
		t.Fatalf("expected tenant in context, got %+v", got)
	}
	if rec.Header().Get("X-Tenant-ID") != "org-1" || rec.Header().Get("X-Tenant-Name") != "Acme Health" {
		t.Fatalf("expected tenant headers, got %v", rec.Header())
	}
}

func TestTenantInactiveOrgRejected(t *testing.T) {
	resolver := &fakeResolver{tenants: map[string]models.TenantContext{
		"org-1": {OrgID: "org-1", OrgType: models.OrgTypeProvider, IsActive: false},
	}}
	tm := NewTenant(resolver, testutil.DiscardLogger())

	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a deactivated org")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, doctorRequest(t, "org-1"))

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "tenant_inactive")
}

func TestTenantUnknownOrgRejected(t *testing.T) {
	tm := NewTenant(&fakeResolver{tenants: map[string]models.TenantContext{}}, testutil.DiscardLogger())

	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an unknown org")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, doctorRequest(t, "org-ghost"))

	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

func TestTenantResolverFailureFailsClosed(t *testing.T) {
	resolver := &fakeResolver{err: dErrors.New(dErrors.CodeInternal, "store down")}
	tm := NewTenant(resolver, testutil.DiscardLogger())

	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when resolution fails")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, doctorRequest(t, "org-1"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTenantAnonymousCallerSkipsResolution(t *testing.T) {
	tm := NewTenant(&fakeResolver{err: dErrors.New(dErrors.CodeInternal, "should not be called")}, testutil.DiscardLogger())

	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = testutil.WithClaims(req, identity.Anonymous())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous caller to pass through, got %d", rec.Code)
	}
}

func TestTenantMissingClaimsRejected(t *testing.T) {
	tm := NewTenant(&fakeResolver{}, testutil.DiscardLogger())

	h := tm.ResolveTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without claims")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/consults", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
