// Package ratelimit throttles /start and other commands per Telegram user.
package ratelimit

import (
	"context"
	"time"
)

// Rule allows Limit updates per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is set when the update was denied.
	RetryAfter time.Duration
}

// Limiter counts updates per user.
type Limiter interface {
	Allow(ctx context.Context, userID int64, rule Rule) (Decision, error)
}
