package idempotency

import (
	"context"
	"log/slog"
	"time"

	pkgredis "github.com/Proton-105/funnel-bot/pkg/redis"
)

// Purger removes expired idempotency data.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Cleaner runs a Purger on a fixed interval.
type Cleaner struct {
	purger   Purger
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(purger Purger, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{purger: purger, log: log, interval: interval}
}

// Run purges on every tick until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	if c.purger == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch removed, err := c.purger.Purge(ctx); {
		case err != nil:
			c.log.Warn("idempotency purge failed", slog.Int("removed", removed), slog.Any("error", err))
		case removed > 0:
			c.log.Debug("idempotency records purged", slog.Int("removed", removed))
		}
	}
}

// Purge deletes update keys that lost their TTL or carry one longer than
// maxTTL. Keys written by Set always expire on their own.
func (s *RedisStore) Purge(ctx context.Context) (int, error) {
	return pkgredis.Sweep(ctx, s.client, KeyPrefix+"*", func(ttl time.Duration) bool {
		return pkgredis.NoExpiry(ttl) || ttl > s.maxTTL
	})
}
