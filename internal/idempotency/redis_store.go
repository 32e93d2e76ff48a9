package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// KeyPrefix namespaces update records in Redis.
const KeyPrefix = "funnel:update:"

// Record marks a handled update.
type Record struct {
	Status    string          `json:"status"`
	Response  json.RawMessage `json:"response,omitempty"`
	HandledAt time.Time       `json:"handled_at"`
}

// Store persists records and the short-lived lock taken while an update runs.
type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore keeps one JSON string per update, expiring with the record TTL.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
	maxTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Redis-backed Store. maxTTL bounds the lifetime
// Purge tolerates on record keys.
func NewRedisStore(client *redis.Client, maxTTL time.Duration, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	if maxTTL <= 0 {
		maxTTL = 25 * time.Hour
	}

	return &RedisStore{
		client: client,
		log:    log,
		maxTTL: maxTTL,
	}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, lockKey(key), time.Now().UnixMilli(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire update lock %s: %w", key, err)
	}
	return acquired, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read update record %s: %w", key, err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt record is treated as absent; the update runs again.
		s.log.Warn("discarding unreadable update record", slog.String("key", key), slog.Any("error", err))
		return nil, nil
	}
	return &record, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode update record %s: %w", key, err)
	}

	if err := s.client.Set(ctx, recordKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store update record %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKey(key)).Err(); err != nil {
		return fmt.Errorf("release update lock %s: %w", key, err)
	}
	return nil
}

func recordKey(key string) string {
	return KeyPrefix + key
}

func lockKey(key string) string {
	return KeyPrefix + key + ":lock"
}
