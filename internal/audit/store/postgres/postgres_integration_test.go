//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	store "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/store/postgres"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	db    *sql.DB
	store *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	pg := containers.GetManager().GetPostgres(s.T())

	db, err := sql.Open("postgres", pg.DSN)
	s.Require().NoError(err)
	s.Require().NoError(db.PingContext(s.ctx))
	s.db = db

	s.store = store.NewPostgres(db)
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "TRUNCATE TABLE audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed(n int, base time.Time) {
	for i := 0; i < n; i++ {
		e := audit.Event{
			ID:         fmt.Sprintf("evt-%03d", i),
			ActorID:    "user-1",
			ActorOrgID: "org-1",
			Action:     audit.ActionRead,
			Resource:   "consult",
			Before:     []byte(`{"status":"old"}`),
			After:      []byte(`{"status":"new"}`),
			Success:    true,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
		s.Require().NoError(s.store.Append(s.ctx, e))
	}
}

func (s *PostgresStoreSuite) TestAppendAndSearch() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.seed(3, base)

	page, err := s.store.Search(s.ctx, audit.Query{})
	s.Require().NoError(err)
	s.Require().Len(page.Events, 3)
	s.Equal("evt-002", page.Events[0].ID)
	s.JSONEq(`{"status":"old"}`, string(page.Events[0].Before))
	s.JSONEq(`{"status":"new"}`, string(page.Events[0].After))
	s.True(page.Events[0].Timestamp.Equal(base.Add(2 * time.Minute)))
}

func (s *PostgresStoreSuite) TestAppendIsIdempotent() {
	base := time.Now().UTC()
	e := audit.Event{ID: "evt-dup", Action: audit.ActionCreate, Timestamp: base}
	s.Require().NoError(s.store.Append(s.ctx, e))
	s.Require().NoError(s.store.Append(s.ctx, e))

	page, err := s.store.Search(s.ctx, audit.Query{})
	s.Require().NoError(err)
	s.Len(page.Events, 1)
}

func (s *PostgresStoreSuite) TestFilters() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.seed(4, base)
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		ID:         "evt-other",
		ActorID:    "user-2",
		ActorOrgID: "org-2",
		Action:     audit.ActionDelete,
		Resource:   "patient",
		ResourceID: "pat-1",
		Timestamp:  base.Add(time.Hour),
	}))

	s.Run("by org", func() {
		page, err := s.store.Search(s.ctx, audit.Query{OrgID: "org-2"})
		s.Require().NoError(err)
		s.Require().Len(page.Events, 1)
		s.Equal("evt-other", page.Events[0].ID)
	})

	s.Run("by action", func() {
		page, err := s.store.Search(s.ctx, audit.Query{Action: audit.ActionRead})
		s.Require().NoError(err)
		s.Len(page.Events, 4)
	})

	s.Run("by time range", func() {
		page, err := s.store.Search(s.ctx, audit.Query{
			From: base.Add(1 * time.Minute),
			To:   base.Add(2 * time.Minute),
		})
		s.Require().NoError(err)
		s.Len(page.Events, 2)
	})
}

func (s *PostgresStoreSuite) TestCursorPagination() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.seed(5, base)

	var seen []string
	q := audit.Query{Limit: 2}
	for {
		page, err := s.store.Search(s.ctx, q)
		s.Require().NoError(err)
		for _, e := range page.Events {
			seen = append(seen, e.ID)
		}
		if page.NextCursor == "" {
			break
		}
		q.Cursor = page.NextCursor
	}

	s.Equal([]string{"evt-004", "evt-003", "evt-002", "evt-001", "evt-000"}, seen)
}

func (s *PostgresStoreSuite) TestDeleteOlderThan() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.seed(4, base)

	removed, err := s.store.DeleteOlderThan(s.ctx, base.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(2), removed)

	page, err := s.store.Search(s.ctx, audit.Query{})
	s.Require().NoError(err)
	s.Len(page.Events, 2)
}
