package errors

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = stdErrors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppError_WrapsCause(t *testing.T) {
	err := NewExternalAPIError("telegram", errBoom, true)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "external API error: telegram: boom", err.Error())
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(NewValidationError("bad")))
	assert.False(t, IsRetryable(errBoom))
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testLogger(), false)

	assert.False(t, h.Handle(context.Background(), nil))
	assert.True(t, h.Handle(context.Background(), NewExternalAPIError("telegram", errBoom, true)))
	assert.False(t, h.Handle(context.Background(), NewPanicError("invalid")))
	assert.False(t, h.Handle(context.Background(), errBoom))
}

func TestRetryPolicy_Do(t *testing.T) {
	fast := RetryPolicy{Attempts: 4, Initial: time.Millisecond, Max: 4 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), func() error {
			calls++
			if calls < 2 {
				return NewExternalAPIError("telegram", errBoom, true)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on non retryable error", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), func() error {
			calls++
			return NewExternalAPIError("telegram", errBoom, false)
		})

		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, calls)
	})

	t.Run("uses every attempt", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), func() error {
			calls++
			return NewExternalAPIError("telegram", errBoom, true)
		})

		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, fast.Attempts, calls)
	})

	t.Run("gives up when context is done", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		slow := RetryPolicy{Attempts: 10, Initial: time.Second, Max: time.Second}
		calls := 0
		err := slow.Do(ctx, func() error {
			calls++
			return NewExternalAPIError("telegram", errBoom, true)
		})

		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Initial: 100 * time.Millisecond, Max: time.Second}
	plain := NewExternalAPIError("telegram", errBoom, true)

	assert.Equal(t, 100*time.Millisecond, p.delay(1, plain))
	assert.Equal(t, 200*time.Millisecond, p.delay(2, plain))
	assert.Equal(t, 800*time.Millisecond, p.delay(4, plain))
	assert.Equal(t, time.Second, p.delay(10, plain))

	flood := NewExternalAPIError("telegram", errBoom, true).WithRetryAfter(3 * time.Second)
	assert.Equal(t, 3*time.Second, p.delay(1, flood))
}

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", BreakerSettings{MinRequests: 4, Cooldown: time.Minute, Probes: 2})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StaysClosedBelowRatio(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	for i := 0; i < 12; i++ {
		var err error
		if i%4 == 0 {
			err = errBoom
		}
		_ = cb.Call(func() error { return err })
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	now = now.Add(time.Minute)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_ProbeLimit(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	now = now.Add(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_ = cb.Call(func() error {
				started <- struct{}{}
				<-release
				return nil
			})
			done <- struct{}{}
		}()
	}
	<-started
	<-started

	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrProbeLimit)

	close(release)
	<-done
	<-done
	assert.Equal(t, StateClosed, cb.State())
}

func TestHandler_NilSafe(t *testing.T) {
	var h *Handler
	assert.True(t, h.Handle(context.Background(), NewExternalAPIError("amqp", errBoom, true)))
	assert.False(t, h.Handle(context.Background(), NewPanicError("boom")))
}
