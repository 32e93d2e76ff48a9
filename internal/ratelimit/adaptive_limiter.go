package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// AdaptiveLimiter asks the shared Redis limiter and, while Redis fails,
// falls back to the local memory limiter at half the limit. Switches between
// the two are logged once each.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	degraded atomic.Bool
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

// Degraded reports whether the last decision came from the fallback.
func (a *AdaptiveLimiter) Degraded() bool {
	return a.degraded.Load()
}

func (a *AdaptiveLimiter) Allow(ctx context.Context, userID int64, rule Rule) (Decision, error) {
	d, err := a.primary.Allow(ctx, userID, rule)
	if err == nil {
		if a.degraded.CompareAndSwap(true, false) {
			a.log.Info("redis rate limiter recovered")
		}
		metrics.RecordRateLimit("redis", d.Allowed)
		return d, nil
	}

	if a.degraded.CompareAndSwap(false, true) {
		a.log.Warn("redis rate limiter failing, using memory fallback", slog.Any("error", err))
	}
	metrics.RecordError("ratelimit_redis", "low")

	strict := rule
	strict.Limit = max(rule.Limit/2, 1)

	d, err = a.fallback.Allow(ctx, userID, strict)
	if err != nil {
		return d, err
	}
	metrics.RecordRateLimit("memory", d.Allowed)
	return d, nil
}
