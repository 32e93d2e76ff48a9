package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a sliding window of update times per user in process memory.
type MemoryLimiter struct {
	mu    sync.Mutex
	users map[int64][]time.Time
	now   func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		users: make(map[int64][]time.Time),
		now:   time.Now,
	}
}

// Allow records the update when userID is below rule.Limit in the current window.
func (m *MemoryLimiter) Allow(_ context.Context, userID int64, rule Rule) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := dropBefore(m.users[userID], now.Add(-rule.Window))
	if len(hits) >= rule.Limit {
		m.users[userID] = hits
		d := Decision{RetryAfter: rule.Window}
		if len(hits) > 0 {
			d.RetryAfter = hits[0].Add(rule.Window).Sub(now)
		}
		return d, nil
	}

	hits = append(hits, now)
	m.users[userID] = hits

	return Decision{Allowed: true, Remaining: rule.Limit - len(hits)}, nil
}

// Cleanup forgets users whose last update is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, hits := range m.users {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.users, userID)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked users.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// dropBefore removes hits older than start. hits is sorted.
func dropBefore(hits []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(start) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
