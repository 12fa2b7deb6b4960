// Package counter provides fixed-window request counters.
package counter

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/models"
)

// InMemory implements a fixed-window counter without external state.
// Suitable for demo mode and tests; production deployments use Redis so
// limits hold across replicas.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *InMemory) WithClock(now func() time.Time) *InMemory {
	s.now = now
	return s
}

// Allow consumes one request from the key's window. Requests at the
// limit are rejected without consuming, so a rejected burst does not
// extend the penalty.
func (s *InMemory) Allow(_ context.Context, key string, limit int, windowSize time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(windowSize)}
		s.windows[key] = w
	}

	if w.count >= limit {
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    w.expiresAt,
			RetryAfter: retryAfterSeconds(w.expiresAt.Sub(now)),
		}, nil
	}

	w.count++
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   w.expiresAt,
	}, nil
}

// Reset clears the counter for a key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
