// Package health aggregates readiness checks of the bot's dependencies.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const checkTimeout = 3 * time.Second

// Checkable is a dependency that can tell whether it is usable.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Report is the outcome of one Check run.
type Report struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
}

// Checker runs the registered checks of the bot's dependencies.
type Checker struct {
	log *slog.Logger

	mu     sync.RWMutex
	checks map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		log:    log,
		checks: make(map[string]Checkable),
	}
}

// AddCheck registers check under name, replacing an earlier one. Unnamed
// checks are ignored.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names lists registered components in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered checks concurrently, each bounded by checkTimeout.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{Healthy: true, Components: make(map[string]string, len(checks))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			err := check.HealthCheck(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Healthy = false
				report.Components[name] = err.Error()
				c.log.Warn("dependency unhealthy", slog.String("component", name), slog.Any("error", err))
				return
			}
			report.Components[name] = "OK"
		}()
	}
	wg.Wait()

	return report
}

// RawCaller is the part of telebot.Bot used to reach the Bot API.
type RawCaller interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// Telegram checks that the Bot API answers getMe. The call is abandoned, not
// cancelled, when ctx ends.
func Telegram(bot RawCaller) CheckFunc {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() {
			_, err := bot.Raw("getMe", nil)
			done <- err
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// QueueState is implemented by the notifier dispatcher.
type QueueState interface {
	Closed() bool
}

var errQueueClosed = errors.New("notification queue is closed")

// Dispatcher fails once the outbound queue stopped accepting messages.
func Dispatcher(queue QueueState) CheckFunc {
	return func(context.Context) error {
		if queue.Closed() {
			return errQueueClosed
		}
		return nil
	}
}
