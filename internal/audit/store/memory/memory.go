// Package memory provides an append-only in-memory audit store for tests and
// demo mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
)

type InMemory struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Search returns events matching the query, newest first, one page at a time.
func (s *InMemory) Search(_ context.Context, q audit.Query) (audit.Page, error) {
	s.mu.RLock()
	matched := make([]audit.Event, 0, len(s.events))
	for _, e := range s.events {
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if q.Cursor != "" {
		ts, id, err := audit.DecodeCursor(q.Cursor)
		if err != nil {
			return audit.Page{}, err
		}
		i := sort.Search(len(matched), func(i int) bool {
			e := matched[i]
			if !e.Timestamp.Equal(ts) {
				return e.Timestamp.Before(ts)
			}
			return e.ID < id
		})
		matched = matched[i:]
	}

	limit := q.PageSize()
	page := audit.Page{}
	if len(matched) > limit {
		page.Events = matched[:limit]
		page.NextCursor = audit.EncodeCursor(matched[limit-1])
	} else {
		page.Events = matched
	}
	return page, nil
}

// DeleteOlderThan removes events with a timestamp before the cutoff and
// returns how many were removed.
func (s *InMemory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

// Len reports the number of stored events.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
