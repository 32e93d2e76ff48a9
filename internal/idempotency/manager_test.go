package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, time.Hour, testLogger()),
	}
}

func TestManager_ExecutesOnce(t *testing.T) {
	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			m := NewManager(store, testLogger())
			ctx := context.Background()
			calls := 0

			op := func(context.Context) (interface{}, error) {
				calls++
				return "done", nil
			}

			first, err := m.Execute(ctx, "msg:1:1", time.Hour, op)
			require.NoError(t, err)
			assert.False(t, first.FromCache)
			assert.Equal(t, "done", first.Response)

			second, err := m.Execute(ctx, "msg:1:1", time.Hour, op)
			require.NoError(t, err)
			assert.True(t, second.FromCache)
			assert.Equal(t, "done", second.Response)

			assert.Equal(t, 1, calls)
		})
	}
}

func TestManager_FailureAllowsRetry(t *testing.T) {
	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			m := NewManager(store, testLogger())
			ctx := context.Background()

			_, err := m.Execute(ctx, "msg:1:2", time.Hour, func(context.Context) (interface{}, error) {
				return nil, errors.New("boom")
			})
			require.Error(t, err)

			result, err := m.Execute(ctx, "msg:1:2", time.Hour, func(context.Context) (interface{}, error) {
				return nil, nil
			})
			require.NoError(t, err)
			assert.False(t, result.FromCache)
		})
	}
}

func TestManager_ConcurrentDuplicates(t *testing.T) {
	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			m := NewManager(store, testLogger())
			ctx := context.Background()

			var (
				calls atomic.Int32
				wg    sync.WaitGroup
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := m.Execute(ctx, "msg:9:9", time.Hour, func(context.Context) (interface{}, error) {
						calls.Add(1)
						time.Sleep(10 * time.Millisecond)
						return nil, nil
					})
					if err != nil {
						assert.ErrorIs(t, err, ErrRequestInProgress)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestMemoryStore_ExpiryAndPurge(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", &Record{Status: StatusCompleted}, time.Minute))
	require.NoError(t, store.Set(ctx, "b", &Record{Status: StatusCompleted}, time.Hour))

	locked, err := store.Lock(ctx, "a", time.Second)
	require.NoError(t, err)
	assert.True(t, locked)
	locked, err = store.Lock(ctx, "a", time.Second)
	require.NoError(t, err)
	assert.False(t, locked)

	now = now.Add(2 * time.Minute)

	record, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, record)

	locked, err = store.Lock(ctx, "a", time.Second)
	require.NoError(t, err)
	assert.True(t, locked, "expired lock must be reacquirable")

	now = now.Add(2 * time.Hour)
	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore_Purge(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store := NewRedisStore(client, time.Hour, testLogger())
	require.NoError(t, store.Set(ctx, "kept", &Record{Status: StatusCompleted}, time.Minute))
	require.NoError(t, client.Set(ctx, KeyPrefix+"orphan", `{"status":"completed"}`, 0).Err())
	require.NoError(t, client.Set(ctx, KeyPrefix+"long", "1", 48*time.Hour).Err())
	require.NoError(t, client.Set(ctx, "unrelated", "1", 0).Err())

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.True(t, mr.Exists(KeyPrefix+"kept"))
	assert.False(t, mr.Exists(KeyPrefix+"orphan"))
	assert.False(t, mr.Exists(KeyPrefix+"long"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisStore_CorruptRecordIsAbsent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(KeyPrefix+"msg:1:1", "{not json"))

	record, err := NewRedisStore(client, time.Hour, testLogger()).Get(context.Background(), "msg:1:1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("order", 1, "X1"), Fingerprint("order", 1, "X1"))
	assert.NotEqual(t, Fingerprint("order", 1, "X1"), Fingerprint("order", 1, "X2"))
	assert.NotEqual(t, Fingerprint("a", "bc"), Fingerprint("ab", "c"))
	assert.Len(t, Fingerprint("anything"), 32)
}
