package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/testutil"
)

type denialCapture struct {
	entries []audit.Entry
}

func (c *denialCapture) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func newGate(t *testing.T, opts ...RBACOption) *RBAC {
	t.Helper()
	return NewRBAC(authz.NewRouteTable(), testutil.DiscardLogger(), opts...)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateAllowsPermittedRole(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/consults", nil)
	req = testutil.WithRole(req, identity.RoleDoctor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGateRejectsUnlistedRole(t *testing.T) {
	h := newGate(t).Gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a denied role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/rx", nil)
	req = testutil.WithRole(req, identity.RoleMarketer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestGateRequiresPurposeForPatients(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req = testutil.WithClaims(req, identity.Claims{Subject: "doc-1", OrgID: "org-1", Role: identity.RoleDoctor})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestGateUnknownPathFailsClosed(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/warehouse", nil)
	req = testutil.WithRole(req, identity.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestGateMissingClaimsRejected(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/consults", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGateAnonymousLimitedToPublicResources(t *testing.T) {
	gate := newGate(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = testutil.WithClaims(req, identity.Anonymous())
	rec := httptest.NewRecorder()
	gate.Gate(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous caller should reach /health, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/consults", nil)
	req = testutil.WithClaims(req, identity.Anonymous())
	rec = httptest.NewRecorder()
	gate.Gate(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous caller must not reach /consults, got %d", rec.Code)
	}

	// Notifications admit every authenticated role, but anonymous callers
	// are still rejected because the requirement does not allow them.
	req = httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req = testutil.WithClaims(req, identity.Anonymous())
	rec = httptest.NewRecorder()
	gate.Gate(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous caller must not reach /notifications, got %d", rec.Code)
	}
}

func TestGateQueryOrgMismatch(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/consults?org_id=org-2", nil)
	req = testutil.WithRole(req, identity.RoleDoctor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestGateSuperAdminCrossesOrgs(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/consults?org_id=org-2", nil)
	req = testutil.WithRole(req, identity.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGateBodyOrgMismatch(t *testing.T) {
	h := newGate(t).Gate(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/consults", strings.NewReader(`{"org_id":"org-2","status":"PENDING"}`))
	req = testutil.WithRole(req, identity.RoleDoctor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestGateBodyPreservedForHandler(t *testing.T) {
	var body string
	h := newGate(t).Gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		body = string(raw)
	}))

	payload := `{"org_id":"org-1","status":"PENDING"}`
	req := httptest.NewRequest(http.MethodPost, "/consults", strings.NewReader(payload))
	req = testutil.WithRole(req, identity.RoleDoctor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body != payload {
		t.Fatalf("handler should see the original body, got %q", body)
	}
}

func TestGateRecordsDenials(t *testing.T) {
	capture := &denialCapture{}
	h := newGate(t, WithDenialRecorder(capture)).Gate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/rx", nil)
	req = testutil.WithRole(req, identity.RoleMarketer)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(capture.entries) != 1 {
		t.Fatalf("expected one denial entry, got %d", len(capture.entries))
	}
	entry := capture.entries[0]
	if entry.Action != audit.ActionAccessDenied || entry.Success {
		t.Fatalf("unexpected denial entry %+v", entry)
	}
}
