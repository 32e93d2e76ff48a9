package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_FIFOPerChat(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 512, Workers: 4}, testLogger())

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)

	for i := 0; i < 50; i++ {
		for chat := int64(1); chat <= 5; chat++ {
			i, chat := i, chat
			require.NoError(t, d.Enqueue(context.Background(), chat, "test", func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				got[chat] = append(got[chat], i)
				return nil
			}))
		}
	}

	require.NoError(t, d.Close(context.Background()))

	for chat := int64(1); chat <= 5; chat++ {
		require.Len(t, got[chat], 50)
		for i, v := range got[chat] {
			assert.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
	assert.Equal(t, int64(0), d.Pending())
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1}, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.NoError(t, d.Enqueue(context.Background(), 1, "queued", func(context.Context) error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), 1, "overflow", func(context.Context) error { return nil }), ErrQueueFull)

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_ClosedAndErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2}, testLogger())

	require.NoError(t, d.Enqueue(context.Background(), 7, "fail", func(context.Context) error {
		return errors.New("boom bot123:secret")
	}))
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.True(t, d.Closed())
	assert.Equal(t, uint64(1), d.ErrorCount())
	assert.ErrorIs(t, d.Enqueue(context.Background(), 7, "late", func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestDispatcher_JobDeadline(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxDuration: 20 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	require.NoError(t, d.Enqueue(ctx, 1, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}))
	// The caller's cancellation does not abort queued jobs; the deadline does.
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job was not bounded by MaxDuration")
	}
	require.NoError(t, d.Close(context.Background()))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": timeout`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, sanitizeErrorMessage(err))
}
