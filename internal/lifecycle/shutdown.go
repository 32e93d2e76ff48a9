package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdown runs the registered hooks once, phase by phase.
type Shutdown struct {
	log     *slog.Logger
	started chan struct{}
	once    sync.Once

	mu     sync.Mutex
	phases [phaseCount][]Hook
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log, started: make(chan struct{})}
}

// Register adds a named hook to phase. Out of range phases run last.
func (s *Shutdown) Register(phase Phase, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if phase < 0 || phase >= phaseCount {
		phase = PhaseRelease
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[phase] = append(s.phases[phase], Hook{Name: name, Phase: phase, Fn: fn})
}

// Started is closed when Execute begins.
func (s *Shutdown) Started() <-chan struct{} {
	return s.started
}

// Execute runs every phase in order. A failing hook does not stop later
// phases; all failures are joined into the result. Only the first call does
// any work.
func (s *Shutdown) Execute(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		close(s.started)

		s.mu.Lock()
		phases := s.phases
		s.mu.Unlock()

		start := time.Now()
		var errs []error
		for phase, hooks := range phases {
			if len(hooks) == 0 {
				continue
			}
			s.log.Info("shutdown phase", slog.String("phase", Phase(phase).String()), slog.Int("hooks", len(hooks)))
			errs = append(errs, s.runPhase(ctx, hooks)...)
		}
		err = errors.Join(errs...)

		s.log.Info("shutdown finished", slog.Duration("elapsed", time.Since(start)), slog.Bool("clean", err == nil))
	})
	return err
}

func (s *Shutdown) runPhase(ctx context.Context, hooks []Hook) []error {
	errs := make([]error, len(hooks))

	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
				errs[i] = fmt.Errorf("%s: %w", h.Name, err)
				return
			}
			s.log.Debug("shutdown hook done", slog.String("hook", h.Name), slog.Duration("elapsed", time.Since(start)))
		}()
	}
	wg.Wait()

	return errs
}
