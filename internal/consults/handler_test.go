package consults

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/testutil"
)

type recorderCapture struct {
	entries []audit.Entry
}

func (c *recorderCapture) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func newConsultRouter(t *testing.T) (chi.Router, *recorderCapture) {
	t.Helper()
	capture := &recorderCapture{}
	h := New(capture, testutil.DiscardLogger())
	r := chi.NewRouter()
	h.Register(r)
	return r, capture
}

func providerClaims(role identity.Role) identity.Claims {
	return identity.Claims{Subject: "user-1", OrgID: "org-provider-demo", Role: role, PurposeOfUse: "treatment"}
}

func TestListConsultsForDoctor(t *testing.T) {
	r, capture := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults")
	req = testutil.WithClaims(req, providerClaims(identity.RoleDoctor))
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[map[string][]map[string]any](t, rr)
	rows := (*body)["consults"]
	if len(rows) != 2 {
		t.Fatalf("expected the provider org's 2 consults, got %d", len(rows))
	}
	if _, ok := rows[0]["patient"]; !ok {
		t.Fatal("doctors should see patient details")
	}

	if len(capture.entries) != 1 || capture.entries[0].Action != audit.ActionList {
		t.Fatalf("expected one list audit entry, got %+v", capture.entries)
	}
}

func TestListConsultsMasksMarketerFields(t *testing.T) {
	r, _ := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults")
	req = testutil.WithClaims(req, identity.Claims{Subject: "mkt-1", OrgID: "org-marketer-demo", Role: identity.RoleMarketer})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[map[string][]map[string]any](t, rr)
	rows := (*body)["consults"]
	if len(rows) != 1 {
		t.Fatalf("expected the marketer org's consult, got %d", len(rows))
	}
	for _, masked := range []string{"patient", "reason_codes", "created_from"} {
		if _, ok := rows[0][masked]; ok {
			t.Fatalf("field %q must be masked for marketers", masked)
		}
	}
	if rows[0]["status"] != "APPROVED" {
		t.Fatalf("unmasked fields should remain, got %+v", rows[0])
	}
}

func TestListConsultsScopedToOrg(t *testing.T) {
	r, _ := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults")
	req = testutil.WithClaims(req, identity.Claims{Subject: "doc-9", OrgID: "org-lab-demo", Role: identity.RoleDoctor, PurposeOfUse: "treatment"})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[map[string][]map[string]any](t, rr)
	if len((*body)["consults"]) != 0 {
		t.Fatal("callers must not see other orgs' consults")
	}
}

func TestListConsultsSuperAdminSeesAll(t *testing.T) {
	r, _ := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults")
	req = testutil.WithClaims(req, identity.Claims{Subject: "root", OrgID: "org-platform", Role: identity.RoleSuperAdmin})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[map[string][]map[string]any](t, rr)
	if len((*body)["consults"]) != 3 {
		t.Fatalf("super admin should see all consults, got %d", len((*body)["consults"]))
	}
}

func TestGetConsultCrossOrgDenied(t *testing.T) {
	r, capture := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults/con-2001")
	req = testutil.WithClaims(req, providerClaims(identity.RoleDoctor))
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	if len(capture.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(capture.entries))
	}
	if capture.entries[0].Success {
		t.Fatal("denied read should be audited as a failure")
	}
}

func TestGetConsultUnknownID(t *testing.T) {
	r, _ := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults/con-9999")
	req = testutil.WithClaims(req, providerClaims(identity.RoleDoctor))
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestGetConsultRecordsRead(t *testing.T) {
	r, capture := newConsultRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/consults/con-1001")
	req = testutil.WithClaims(req, providerClaims(identity.RoleDoctor))
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusOK(t, rr)
	if len(capture.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(capture.entries))
	}
	entry := capture.entries[0]
	if entry.Action != audit.ActionRead || entry.ResourceID != "con-1001" || !entry.Success {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
}
