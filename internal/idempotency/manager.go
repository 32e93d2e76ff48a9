// Package idempotency makes sure a Telegram update is handled at most once,
// even when Telegram re-delivers it.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

const defaultLockTTL = 5 * time.Minute

type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  interface{}
	FromCache bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{store: store, log: log}
}

// Execute runs fn once per key. A completed key returns the cached response,
// a key held by a concurrent call returns ErrRequestInProgress. A failed fn
// leaves no record, so the key may be retried.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if res, err := m.cached(ctx, key); res != nil || err != nil {
		return res, err
	}

	release, err := m.claim(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another holder may have finished between the lookup and the claim.
	if res, err := m.cached(ctx, key); res != nil || err != nil {
		return res, err
	}

	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.remember(ctx, key, out, ttl); err != nil {
		return nil, err
	}
	return &Result{Response: out}, nil
}

// cached returns the stored result for key, or nil when the key has not
// completed yet.
func (m *manager) cached(ctx context.Context, key string) (*Result, error) {
	record, err := m.store.Get(ctx, key)
	if err != nil || record == nil || record.Status != StatusCompleted {
		return nil, err
	}

	res := &Result{FromCache: true}
	if len(record.Response) > 0 {
		if err := json.Unmarshal(record.Response, &res.Response); err != nil {
			return nil, fmt.Errorf("decode cached response: %w", err)
		}
	}
	return res, nil
}

// claim takes the processing lock on key. The returned func releases it even
// when ctx is already cancelled.
func (m *manager) claim(ctx context.Context, key string) (func(), error) {
	ok, err := m.store.Lock(ctx, key, defaultLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestInProgress
	}

	return func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("idempotency lock not released", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

func (m *manager) remember(ctx context.Context, key string, out interface{}, ttl time.Duration) error {
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return m.store.Set(ctx, key, &Record{
		Status:    StatusCompleted,
		Response:  body,
		HandledAt: time.Now().UTC(),
	}, ttl)
}
