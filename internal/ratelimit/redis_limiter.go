package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the per-user sorted sets.
const KeyPrefix = "funnel:ratelimit:user:"

// slidingWindow trims the window, then adds the hit when below the limit.
// Scores are unix milliseconds. Returns {allowed, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, limit - count - 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// RedisLimiter shares the sliding window between bot replicas.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

// Allow runs the sliding window script atomically for userID.
func (l *RedisLimiter) Allow(ctx context.Context, userID int64, rule Rule) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("redis client is not configured for rate limiting")
	}

	res, err := slidingWindow.Run(ctx, l.client,
		[]string{fmt.Sprintf("%s%d", KeyPrefix, userID)},
		l.now().UnixMilli(),
		rule.Window.Milliseconds(),
		rule.Limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
