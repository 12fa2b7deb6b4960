package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/privacy"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
	"github.com/google/uuid"
)

// DefaultRetentionDays keeps audit events for roughly seven years.
const DefaultRetentionDays = 2555

// writeTimeout bounds the detached audit write so a sick store cannot pin
// goroutines indefinitely.
const writeTimeout = 5 * time.Second

// exportCap bounds how many events a single export may pull.
const exportCap = 10000

// Store is the persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	Search(ctx context.Context, q Query) (Page, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher fans security events out to an external topic. Publish failures
// are swallowed by the Recorder.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Entry is the write-side request for one audit record. Before and After may
// be any JSON-serializable value; the Recorder redacts them before anything
// is persisted.
type Entry struct {
	CorrelationID string
	ActorID       string
	ActorOrgID    string
	ActorRole     string
	ActorIP       string
	UserAgent     string
	Action        string
	Resource      string
	ResourceID    string
	PurposeOfUse  string
	Before        any
	After         any
	Success       bool
	ErrorMessage  string
}

// NewEntry starts an entry with the actor fields filled from the request
// context: claims, client IP, user agent, and request ID.
func NewEntry(ctx context.Context, action string, resource authz.Resource) Entry {
	entry := Entry{
		Action:   action,
		Resource: string(resource),
		Success:  true,
	}
	if claims, ok := requestcontext.ClaimsFromContext(ctx); ok {
		entry.ActorID = claims.Subject
		entry.ActorOrgID = claims.OrgID
		entry.ActorRole = string(claims.Role)
		entry.PurposeOfUse = claims.PurposeOfUse
	}
	entry.ActorIP = requestcontext.ClientIPFromContext(ctx)
	entry.UserAgent = requestcontext.UserAgentFromContext(ctx)
	entry.CorrelationID = requestcontext.RequestIDFromContext(ctx)
	return entry
}

// Recorder writes audit events and runs the suspicious-activity heuristics.
// It is the compliance record of the system, so writes survive client
// disconnects, and write failures never reach the caller.
type Recorder struct {
	store     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
	detector  *Detector
	now       func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithPublisher enables security-event fan-out. Without it, fan-out is a
// no-op.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		logger:   logger,
		detector: NewDetector(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record redacts, persists, and logs one audit event, then runs the
// suspicious-activity heuristics. It never returns an error: the caller's
// operation must not depend on audit health. The write is detached from the
// request context so a client disconnect cannot cancel it.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	e := entry.event(uuid.NewString(), r.now())

	start := time.Now()
	if err := r.store.Append(ctx, e); err != nil {
		r.metrics.IncrementWriteFailure()
		r.logger.ErrorContext(ctx, "audit write failed",
			"action", e.Action,
			"resource", e.Resource,
			"correlation_id", e.CorrelationID,
			"error", err,
		)
	} else {
		r.metrics.ObserveWrite(start)
		r.metrics.IncrementRecorded(string(e.Category()))
	}

	r.logEvent(ctx, e)

	for _, f := range r.detector.Inspect(e) {
		r.metrics.IncrementFinding(f.Kind)
		r.logger.WarnContext(ctx, "suspicious activity detected",
			"finding", f.Kind,
			"detail", f.Detail,
			"actor_id", e.ActorID,
			"ip_prefix", privacy.AnonymizeIP(e.ActorIP),
			"correlation_id", e.CorrelationID,
		)
	}

	if r.publisher != nil && e.Category() == CategorySecurity {
		payload, err := json.Marshal(e)
		if err == nil {
			err = r.publisher.Publish(ctx, e.ID, payload)
		}
		if err != nil {
			r.metrics.IncrementPublishFailure()
			r.logger.WarnContext(ctx, "security event fan-out failed",
				"action", e.Action,
				"event_id", e.ID,
				"error", err,
			)
		}
	}
}

func (r *Recorder) logEvent(ctx context.Context, e Event) {
	level := slog.LevelInfo
	switch e.SeverityLevel() {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "audit event",
		"log_type", "audit",
		"category", string(e.Category()),
		"action", e.Action,
		"resource", e.Resource,
		"resource_id", e.ResourceID,
		"actor_id", e.ActorID,
		"org_id", e.ActorOrgID,
		"success", e.Success,
		"correlation_id", e.CorrelationID,
	)
}

// Search returns one page of audit events matching the query.
func (r *Recorder) Search(ctx context.Context, q Query) (Page, error) {
	if q.Cursor != "" {
		if _, _, err := DecodeCursor(q.Cursor); err != nil {
			return Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
		}
	}
	page, err := r.store.Search(ctx, q)
	if err != nil {
		return Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit events")
	}
	return page, nil
}

// Export renders matching events as JSON or CSV, paging through the store up
// to the export cap.
func (r *Recorder) Export(ctx context.Context, q Query, format string) ([]byte, error) {
	if format != "json" && format != "csv" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "format must be json or csv")
	}

	q.Limit = MaxPageSize
	q.Cursor = ""
	var events []Event
	for len(events) < exportCap {
		page, err := r.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		events = append(events, page.Events...)
		if page.NextCursor == "" {
			break
		}
		q.Cursor = page.NextCursor
	}

	if format == "json" {
		out, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render export")
		}
		return out, nil
	}
	return renderCSV(events)
}

func renderCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"id", "correlation_id", "timestamp", "category",
		"actor_id", "actor_org_id", "actor_role", "actor_ip",
		"action", "resource", "resource_id", "purpose_of_use",
		"success", "error_message",
	}
	if err := w.Write(header); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render export")
	}
	for _, e := range events {
		row := []string{
			e.ID, e.CorrelationID, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Category()),
			e.ActorID, e.ActorOrgID, e.ActorRole, e.ActorIP,
			e.Action, e.Resource, e.ResourceID, e.PurposeOfUse,
			strconv.FormatBool(e.Success), e.ErrorMessage,
		}
		if err := w.Write(row); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render export")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render export")
	}
	return buf.Bytes(), nil
}

// Cleanup deletes events older than the retention window and returns the
// number purged.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetentionDays * 24 * time.Hour
	}
	cutoff := r.now().Add(-retention)
	purged, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge audit events")
	}
	r.metrics.AddPurged(purged)
	r.logger.InfoContext(ctx, "audit retention purge completed",
		"purged", purged,
		"cutoff", cutoff.UTC().Format(time.RFC3339),
	)
	return purged, nil
}

// event converts the entry into a stored Event, redacting the state
// snapshots and the error text on the way.
func (entry Entry) event(id string, now time.Time) Event {
	rctx := privacy.ContextGeneral
	if authz.Resource(entry.Resource).IsPHICategory() {
		rctx = privacy.ContextPatient
	}
	return Event{
		ID:            id,
		CorrelationID: entry.CorrelationID,
		ActorID:       entry.ActorID,
		ActorOrgID:    entry.ActorOrgID,
		ActorRole:     entry.ActorRole,
		ActorIP:       entry.ActorIP,
		UserAgent:     entry.UserAgent,
		Action:        entry.Action,
		Resource:      entry.Resource,
		ResourceID:    entry.ResourceID,
		PurposeOfUse:  entry.PurposeOfUse,
		Before:        redactState(entry.Before, rctx),
		After:         redactState(entry.After, rctx),
		Success:       entry.Success,
		ErrorMessage:  privacy.RedactString(entry.ErrorMessage, rctx),
		Timestamp:     now,
	}
}

func redactState(v any, rctx privacy.Context) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(privacy.RedactObject(v, rctx))
	if err != nil {
		return json.RawMessage(`"[REDACTED]"`)
	}
	return raw
}
