// Package models holds the rate limit domain types and key builders.
package models

import (
	"strings"
	"time"
)

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// SanitizeKeySegment escapes delimiter characters in rate limit key
// segments to prevent collision attacks where a user-controlled
// identifier containing ':' could manipulate adjacent buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IdentityKey builds the counter key for an authenticated subject.
// Limits are scoped per user within an organization so one noisy user
// cannot exhaust a whole org's budget.
func IdentityKey(orgID, userID string) string {
	return "ratelimit:org:" + SanitizeKeySegment(orgID) + ":user:" + SanitizeKeySegment(userID)
}

// IPKey builds the counter key for an unauthenticated caller.
func IPKey(ip string) string {
	return "ratelimit:ip:" + SanitizeKeySegment(ip)
}
