// Package postgres persists audit events in PostgreSQL through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"

	_ "github.com/lib/pq"
)

// Migration creates the audit_events table. Events are append-only; there is
// no UPDATE path, and the only DELETE is the retention purge.
const Migration = `
CREATE TABLE IF NOT EXISTS audit_events (
	id             TEXT PRIMARY KEY,
	correlation_id TEXT NOT NULL DEFAULT '',
	actor_id       TEXT NOT NULL DEFAULT '',
	actor_org_id   TEXT NOT NULL DEFAULT '',
	actor_role     TEXT NOT NULL DEFAULT '',
	actor_ip       TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	resource       TEXT NOT NULL DEFAULT '',
	resource_id    TEXT NOT NULL DEFAULT '',
	purpose_of_use TEXT NOT NULL DEFAULT '',
	before_state   JSONB,
	after_state    JSONB,
	success        BOOLEAN NOT NULL,
	error_message  TEXT NOT NULL DEFAULT '',
	timestamp      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events (timestamp DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events (actor_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_events_org ON audit_events (actor_org_id, timestamp DESC);
`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the schema. Safe to run repeatedly.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Migration); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

const eventColumns = `id, correlation_id, actor_id, actor_org_id, actor_role, actor_ip,
	user_agent, action, resource, resource_id, purpose_of_use,
	before_state, after_state, success, error_message, timestamp`

func (s *Postgres) Append(ctx context.Context, e audit.Event) error {
	query := `
		INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	var before, after any
	if len(e.Before) > 0 {
		before = []byte(e.Before)
	}
	if len(e.After) > 0 {
		after = []byte(e.After)
	}
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.CorrelationID, e.ActorID, e.ActorOrgID, e.ActorRole, e.ActorIP,
		e.UserAgent, e.Action, e.Resource, e.ResourceID, e.PurposeOfUse,
		before, after, e.Success, e.ErrorMessage, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Search pages through matching events, newest first. One extra row is
// fetched to decide whether another page exists.
func (s *Postgres) Search(ctx context.Context, q audit.Query) (audit.Page, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(q.ActorID))
	}
	if q.OrgID != "" {
		conds = append(conds, "actor_org_id = "+arg(q.OrgID))
	}
	if q.Action != "" {
		conds = append(conds, "action = "+arg(q.Action))
	}
	if q.Resource != "" {
		conds = append(conds, "resource = "+arg(q.Resource))
	}
	if q.ResourceID != "" {
		conds = append(conds, "resource_id = "+arg(q.ResourceID))
	}
	if !q.From.IsZero() {
		conds = append(conds, "timestamp >= "+arg(q.From))
	}
	if !q.To.IsZero() {
		conds = append(conds, "timestamp <= "+arg(q.To))
	}
	if q.Cursor != "" {
		ts, id, err := audit.DecodeCursor(q.Cursor)
		if err != nil {
			return audit.Page{}, err
		}
		conds = append(conds, fmt.Sprintf("(timestamp, id) < (%s, %s)", arg(ts), arg(id)))
	}

	query := "SELECT " + eventColumns + " FROM audit_events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := q.PageSize()
	query += " ORDER BY timestamp DESC, id DESC LIMIT " + arg(limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return audit.Page{}, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return audit.Page{}, err
	}

	page := audit.Page{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.NextCursor = audit.EncodeCursor(events[limit-1])
	}
	return page, nil
}

// DeleteOlderThan purges events before the cutoff and reports the count.
func (s *Postgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e             audit.Event
			before, after []byte
		)
		err := rows.Scan(
			&e.ID, &e.CorrelationID, &e.ActorID, &e.ActorOrgID, &e.ActorRole, &e.ActorIP,
			&e.UserAgent, &e.Action, &e.Resource, &e.ResourceID, &e.PurposeOfUse,
			&before, &after, &e.Success, &e.ErrorMessage, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Before = before
		e.After = after
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
