package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	base  time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) seed(n int, mutate func(i int, e *audit.Event)) {
	for i := 0; i < n; i++ {
		e := audit.Event{
			ID:         fmt.Sprintf("evt-%03d", i),
			ActorID:    "user-1",
			ActorOrgID: "org-1",
			Action:     audit.ActionRead,
			Resource:   "consult",
			Timestamp:  s.base.Add(time.Duration(i) * time.Minute),
		}
		if mutate != nil {
			mutate(i, &e)
		}
		s.Require().NoError(s.store.Append(s.ctx, e))
	}
}

func (s *MemoryStoreSuite) TestSearchOrdersNewestFirst() {
	s.seed(3, nil)

	page, err := s.store.Search(s.ctx, audit.Query{})
	s.Require().NoError(err)
	s.Require().Len(page.Events, 3)
	s.Equal("evt-002", page.Events[0].ID)
	s.Equal("evt-000", page.Events[2].ID)
}

func (s *MemoryStoreSuite) TestSearchFilters() {
	s.seed(6, func(i int, e *audit.Event) {
		if i%2 == 0 {
			e.ActorID = "user-2"
			e.ActorOrgID = "org-2"
		}
		if i == 3 {
			e.Action = audit.ActionDelete
			e.ResourceID = "con-3"
		}
	})

	s.Run("by actor", func() {
		page, err := s.store.Search(s.ctx, audit.Query{ActorID: "user-2"})
		s.Require().NoError(err)
		s.Len(page.Events, 3)
	})

	s.Run("by org", func() {
		page, err := s.store.Search(s.ctx, audit.Query{OrgID: "org-1"})
		s.Require().NoError(err)
		s.Len(page.Events, 3)
	})

	s.Run("by action and resource id", func() {
		page, err := s.store.Search(s.ctx, audit.Query{Action: audit.ActionDelete, ResourceID: "con-3"})
		s.Require().NoError(err)
		s.Require().Len(page.Events, 1)
		s.Equal("evt-003", page.Events[0].ID)
	})

	s.Run("by time range", func() {
		page, err := s.store.Search(s.ctx, audit.Query{
			From: s.base.Add(1 * time.Minute),
			To:   s.base.Add(3 * time.Minute),
		})
		s.Require().NoError(err)
		s.Len(page.Events, 3)
	})

	s.Run("no matches", func() {
		page, err := s.store.Search(s.ctx, audit.Query{ActorID: "nobody"})
		s.Require().NoError(err)
		s.Empty(page.Events)
		s.Empty(page.NextCursor)
	})
}

func (s *MemoryStoreSuite) TestCursorPagination() {
	s.seed(5, nil)

	var seen []string
	q := audit.Query{Limit: 2}
	for pages := 0; pages < 4; pages++ {
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

func (s *MemoryStoreSuite) TestCursorIsStableAcrossTimestampTies() {
	s.seed(4, func(i int, e *audit.Event) {
		e.Timestamp = s.base
	})

	var seen []string
	q := audit.Query{Limit: 3}
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

	s.Equal([]string{"evt-003", "evt-002", "evt-001", "evt-000"}, seen)
}

func (s *MemoryStoreSuite) TestMalformedCursorRejected() {
	s.seed(1, nil)

	_, err := s.store.Search(s.ctx, audit.Query{Cursor: "garbage"})
	s.Error(err)
}

func (s *MemoryStoreSuite) TestDeleteOlderThan() {
	s.seed(4, nil)

	removed, err := s.store.DeleteOlderThan(s.ctx, s.base.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(2), removed)
	s.Equal(2, s.store.Len())

	page, err := s.store.Search(s.ctx, audit.Query{})
	s.Require().NoError(err)
	for _, e := range page.Events {
		s.False(e.Timestamp.Before(s.base.Add(2 * time.Minute)))
	}
}
