// Package audit records who did what to which resource, with PHI-redacted
// before/after snapshots. Events are immutable once written and are only
// removed by the retention purge.
package audit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
)

// EventCategory classifies events by why they are retained.
//
//   - compliance: regulatory record of PHI access and consent-relevant
//     mutations. Longest retention.
//   - security: authentication activity and authorization denials. Feeds the
//     suspicious-activity heuristics and the security fan-out topic.
//   - operations: everything else. Useful for debugging, cheap to drop.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategorySecurity   EventCategory = "security"
	CategoryOperations EventCategory = "operations"
)

// Severity grades how urgently a human should look at an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Actions recorded by the pipeline and handlers.
const (
	ActionLogin        = "login"
	ActionLoginFailed  = "login_failed"
	ActionLogout       = "logout"
	ActionTokenRefresh = "token_refresh"
	ActionAccessDenied = "access_denied"
	ActionRead         = "read"
	ActionList         = "list"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionExport       = "export"
)

var securityActions = map[string]struct{}{
	ActionLogin:        {},
	ActionLoginFailed:  {},
	ActionLogout:       {},
	ActionTokenRefresh: {},
	ActionAccessDenied: {},
}

// Event is a single immutable audit record. Before and After hold
// JSON that has already been through the PHI redactor; the Recorder
// is the only writer and enforces that.
type Event struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	ActorOrgID    string          `json:"actor_org_id,omitempty"`
	ActorRole     string          `json:"actor_role,omitempty"`
	ActorIP       string          `json:"actor_ip,omitempty"`
	UserAgent     string          `json:"user_agent,omitempty"`
	Action        string          `json:"action"`
	Resource      string          `json:"resource,omitempty"`
	ResourceID    string          `json:"resource_id,omitempty"`
	PurposeOfUse  string          `json:"purpose_of_use,omitempty"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	Success       bool            `json:"success"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Category derives the retention class from the event's action and resource.
// Authentication activity is security; any touch of a PHI-bearing resource is
// compliance; the rest is operations.
func (e Event) Category() EventCategory {
	if _, ok := securityActions[e.Action]; ok {
		return CategorySecurity
	}
	if authz.Resource(e.Resource).IsPHICategory() {
		return CategoryCompliance
	}
	return CategoryOperations
}

// SeverityLevel grades the event for log output. Failed logins and denials
// warrant a warning; failed mutations of compliance resources are critical.
func (e Event) SeverityLevel() Severity {
	switch e.Action {
	case ActionLoginFailed, ActionAccessDenied:
		return SeverityWarning
	}
	if !e.Success && e.Category() == CategoryCompliance {
		return SeverityCritical
	}
	return SeverityInfo
}

// Query filters the audit log. Zero-valued fields are ignored. Cursor is an
// opaque token from a previous page; Limit caps the page size.
type Query struct {
	ActorID    string
	OrgID      string
	Action     string
	Resource   string
	ResourceID string
	From       time.Time
	To         time.Time
	Cursor     string
	Limit      int
}

// DefaultPageSize bounds unpaginated queries. MaxPageSize is the hard cap.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageSize resolves the effective limit for the query.
func (q Query) PageSize() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		return MaxPageSize
	}
	return q.Limit
}

// Page is one page of query results. NextCursor is empty on the last page.
type Page struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// EncodeCursor packs the last event of a page into an opaque token. Ordering
// is (timestamp, id) descending, so the pair uniquely positions the page end.
func EncodeCursor(e Event) string {
	raw := e.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + e.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("decode cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("decode cursor timestamp: %w", err)
	}
	return t, id, nil
}

// Matches reports whether the event passes the query's filters. Cursor and
// Limit are pagination concerns and are not consulted here.
func (q Query) Matches(e Event) bool {
	if q.ActorID != "" && e.ActorID != q.ActorID {
		return false
	}
	if q.OrgID != "" && e.ActorOrgID != q.OrgID {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.Resource != "" && e.Resource != q.Resource {
		return false
	}
	if q.ResourceID != "" && e.ResourceID != q.ResourceID {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	return true
}
