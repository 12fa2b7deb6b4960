package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if seen == "" {
		t.Fatal("expected a request id in context")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected a generated uuid, got %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}
}

func TestRequestIDHonorsCallerHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "upstream-123" {
		t.Fatalf("expected caller's id to be kept, got %q", seen)
	}
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestIDFromContext(r.Context())
	}))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", string(long))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("oversized header should be replaced with a uuid, got %q", seen)
	}
}

func TestRequestTimePinned(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first := requestcontext.RequestTimeFromContext(r.Context())
		second := requestcontext.RequestTimeFromContext(r.Context())
		if !first.Equal(second) {
			t.Fatal("request time should be stable within one request")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
}
