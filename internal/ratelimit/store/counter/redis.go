package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/models"
)

// Redis implements a fixed-window counter shared across replicas.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Allow consumes one request from the key's window. INCR and EXPIRE NX
// run in one transaction so the window starts exactly when the first
// request lands. Rejected requests are decremented back so they do not
// consume quota.
func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit incr: %w", err)
	}

	count := incr.Val()
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	resetAt := time.Now().Add(remaining)

	if count > int64(limit) {
		// Roll back so a rejected burst does not inflate the counter.
		if err := s.client.Decr(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("rate limit decr: %w", err)
		}
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(remaining),
		}, nil
	}

	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for a key.
func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
