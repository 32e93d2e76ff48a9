// Package funnel implements the checkout funnel: offer presentation on /start,
// completion through the Web App bridge and a single delayed retention nudge.
//
// Every read-modify-write of a user's status runs inside state.Store.Update,
// so the retention timer and the completion signal are serialized per user.
// Timer cancellation only saves work; the status and sequence checks in the
// timer body decide whether a nudge is sent.
package funnel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Proton-105/funnel-bot/internal/state"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// Notifier enqueues an outbound message. Implementations must not block on
// delivery: Notify is called while the user's lock is held.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, msg Message) error
}

// Order describes an approved checkout.
type Order struct {
	UserID      int64
	ChatID      int64
	Package     string
	OrderID     string
	Amount      string
	Currency    string
	Source      string
	CompletedAt time.Time
}

// OrderListener is told about every order after the funnel completed.
type OrderListener interface {
	OrderCompleted(ctx context.Context, order Order)
}

// StartOutcome is the result of Service.Start.
type StartOutcome string

const (
	StartIgnored          StartOutcome = "ignored"
	StartAlreadyCompleted StartOutcome = "already_completed"
	StartPresented        StartOutcome = "presented"
)

// CompleteOutcome is the result of Service.Complete.
type CompleteOutcome string

const (
	CompleteIgnored      CompleteOutcome = "ignored"
	CompleteCompleted    CompleteOutcome = "completed"
	CompleteDuplicate    CompleteOutcome = "duplicate"
	CompleteUnrecognized CompleteOutcome = "unrecognized"
)

// Service drives the funnel for all users.
type Service struct {
	store    *state.Store
	notifier Notifier
	clock    Clock
	listener OrderListener
	log      *slog.Logger

	content atomic.Pointer[Content]
	seq     atomic.Uint64
	stopped atomic.Bool
	wg      sync.WaitGroup
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithOrderListener registers a listener for completed orders.
func WithOrderListener(listener OrderListener) Option {
	return func(s *Service) {
		s.listener = listener
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the funnel around store and notifier.
func NewService(store *state.Store, notifier Notifier, content Content, opts ...Option) *Service {
	if store == nil {
		store = state.NewStore()
	}

	s := &Service{
		store:    store,
		notifier: notifier,
		clock:    SystemClock{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "funnel"))
	s.content.Store(&content)

	return s
}

// Content returns the content currently in use.
func (s *Service) Content() Content {
	return *s.content.Load()
}

// UpdateContent swaps texts, offers and the remarketing settings. Timers
// already scheduled keep their delay.
func (s *Service) UpdateContent(content Content) {
	s.content.Store(&content)
	s.log.Info("funnel content updated",
		slog.Int("offers", len(content.Presentation.Offers)),
		slog.Bool("remarketing", content.Remarketing.Enabled),
		slog.Duration("remarketing_delay", content.Remarketing.Delay),
	)
}

// Store exposes the underlying state store.
func (s *Service) Store() *state.Store {
	return s.store
}

// Start presents the offers to the user and (re)arms the retention timer.
// Users who already completed a checkout are left alone.
func (s *Service) Start(ctx context.Context, userID, chatID int64) StartOutcome {
	outcome := s.start(ctx, userID, chatID)
	metrics.RecordFunnelEvent("start", string(outcome))
	return outcome
}

func (s *Service) start(ctx context.Context, userID, chatID int64) StartOutcome {
	if userID == 0 || chatID == 0 {
		return StartIgnored
	}

	content := s.Content()
	outcome := StartPresented

	s.store.Update(userID, func(st *state.UserFunnelState) {
		if st.IsCompleted() {
			outcome = StartAlreadyCompleted
			return
		}

		s.notify(ctx, userID, chatID, content.presentationMessage())

		st.CancelTimer()
		if !st.Exists() {
			if err := st.TransitionTo(state.StatusStarted); err != nil {
				s.log.Error("start transition rejected", slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}
		if err := st.TransitionTo(state.StatusAwaitingCompletion); err != nil {
			s.log.Error("start transition rejected", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		st.UserID = userID
		st.ChatID = chatID
		st.StartedAt = s.clock.Now()

		s.scheduleRetention(st, content.Remarketing)
	})

	if outcome == StartPresented {
		s.log.Info("offers presented", slog.Int64("user_id", userID), slog.Int64("chat_id", chatID))
	}

	return outcome
}

// scheduleRetention arms the timer for st. A user is nudged at most once.
// Callers must hold the user's lock.
func (s *Service) scheduleRetention(st *state.UserFunnelState, rm Remarketing) {
	if !rm.Enabled || rm.Delay <= 0 || !st.RetentionSentAt.IsZero() || s.stopped.Load() {
		return
	}

	userID, chatID := st.UserID, st.ChatID
	seq := s.seq.Add(1)

	st.TimerSeq = seq
	st.PendingTimer = s.clock.AfterFunc(rm.Delay, func() {
		s.fireRetention(userID, chatID, seq)
	})
}

// Stop cancels every pending retention timer. Later starts no longer schedule
// timers. Stop waits for in-flight order listeners.
func (s *Service) Stop() {
	s.stopped.Store(true)

	for _, snapshot := range s.store.Snapshot() {
		if snapshot.PendingTimer == nil {
			continue
		}
		s.store.Update(snapshot.UserID, func(st *state.UserFunnelState) {
			st.CancelTimer()
		})
	}

	s.wg.Wait()
}

// notify enqueues msg and reports whether the notifier accepted it.
func (s *Service) notify(ctx context.Context, userID, chatID int64, msg Message) bool {
	if s.notifier == nil {
		return false
	}

	err := s.notifier.Notify(ctx, chatID, msg)
	if err != nil {
		metrics.RecordNotification(string(msg.Kind), "enqueue_failed")
		s.log.Error("failed to enqueue message",
			slog.String("kind", string(msg.Kind)),
			slog.Int64("user_id", userID),
			slog.Int64("chat_id", chatID),
			slog.Any("error", err),
		)
	}
	return err == nil
}
