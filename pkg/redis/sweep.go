package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const sweepBatch = 100

// NoExpiry matches keys without a TTL. PTTL reports them as a raw -1.
func NoExpiry(ttl time.Duration) bool {
	return ttl == -1
}

// Sweep walks the keys matching pattern and deletes those whose remaining TTL
// satisfies stale. The TTLs of each scan page are read in one pipeline. It
// returns the number of deleted keys, which may be partial on error.
func Sweep(ctx context.Context, client redis.Cmdable, pattern string, stale func(ttl time.Duration) bool) (int, error) {
	deleted := 0
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, sweepBatch).Result()
		if err != nil {
			return deleted, err
		}

		n, err := sweepPage(ctx, client, keys, stale)
		deleted += n
		if err != nil {
			return deleted, err
		}

		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func sweepPage(ctx context.Context, client redis.Cmdable, keys []string, stale func(time.Duration) bool) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	ttls := make([]*redis.DurationCmd, len(keys))
	_, err := client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			ttls[i] = p.PTTL(ctx, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var doomed []string
	for i, cmd := range ttls {
		// -2: the key expired between SCAN and PTTL.
		if ttl := cmd.Val(); ttl != -2 && stale(ttl) {
			doomed = append(doomed, keys[i])
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := client.Del(ctx, doomed...).Err(); err != nil {
		return 0, err
	}
	return len(doomed), nil
}
