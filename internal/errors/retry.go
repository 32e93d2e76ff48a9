package errors

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// RetryPolicy describes how often and how patiently a remote call is repeated.
type RetryPolicy struct {
	Name     string
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultRetry allows three repeats with a doubling delay from 100ms up to 5s.
var DefaultRetry = RetryPolicy{
	Attempts: 4,
	Initial:  100 * time.Millisecond,
	Max:      5 * time.Second,
}

// Named returns a copy of p reporting its retries under name.
func (p RetryPolicy) Named(name string) RetryPolicy {
	p.Name = name
	return p
}

// Do calls fn until it succeeds, fails permanently or the attempts are used up.
// A RetryAfter carried by the error replaces the computed delay when it is
// longer. Waiting stops as soon as ctx is done and the last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if attempt >= attempts || !IsRetryable(err) {
			return err
		}

		metrics.RecordRetry(p.Name)

		wait := time.NewTimer(p.delay(attempt, err))
		select {
		case <-ctx.Done():
			wait.Stop()
			return err
		case <-wait.C:
		}
	}
}

// WithRetry runs fn under DefaultRetry.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultRetry.Do(ctx, fn)
}

func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}
	return false
}

// delay is the pause after the given failed attempt, counted from one.
func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	d := p.Initial
	for i := 1; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.RetryAfter > d {
		d = appErr.RetryAfter
	}
	return d
}
