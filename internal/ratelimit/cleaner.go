package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/Proton-105/funnel-bot/pkg/redis"
)

// Cleaner bounds limiter state: it forgets users idle longer than maxAge in
// the memory limiter and deletes Redis windows that lost their expiry.
type Cleaner struct {
	client   *redis.Client
	memory   *MemoryLimiter
	maxAge   time.Duration
	interval time.Duration
	log      *slog.Logger
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(client *redis.Client, memory *MemoryLimiter, maxAge time.Duration, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{client: client, memory: memory, maxAge: maxAge, interval: interval, log: log}
}

// Run cleans on every tick until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.interval <= 0 || (c.client == nil && c.memory == nil) {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	var forgotten, deleted int
	if c.memory != nil {
		forgotten = c.memory.Cleanup(c.maxAge)
	}
	if c.client != nil {
		var err error
		if deleted, err = pkgredis.Sweep(ctx, c.client, KeyPrefix+"*", pkgredis.NoExpiry); err != nil {
			c.log.Warn("rate limit sweep incomplete", slog.Any("error", err))
		}
	}

	if forgotten+deleted > 0 {
		c.log.Info("rate limit state cleaned",
			slog.Int("memory_users", forgotten),
			slog.Int("redis_windows", deleted),
		)
	}
}
