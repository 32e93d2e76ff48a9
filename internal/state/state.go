package state

import "time"

// Status represents a funnel state of a single user.
type Status string

const (
	// StatusNone marks a user the store has not seen yet.
	StatusNone Status = ""
	// StatusStarted is held only while /start is being processed.
	StatusStarted Status = "started"
	// StatusAwaitingCompletion indicates the offers were presented and checkout is pending.
	StatusAwaitingCompletion Status = "awaiting_completion"
	// StatusCompleted indicates the checkout was approved. It is terminal.
	StatusCompleted Status = "completed"
)

// Timer is a cancellable handle of a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It is safe to call on a timer
	// that already fired or was already stopped.
	Stop() bool
}

// UserFunnelState captures the funnel progress of a Telegram user.
type UserFunnelState struct {
	UserID          int64
	ChatID          int64
	Status          Status
	SelectedPackage string
	OrderID         string

	// PendingTimer is the live retention timer, nil once fired or cancelled.
	PendingTimer Timer
	// TimerSeq identifies PendingTimer; a firing carrying another value is stale.
	TimerSeq uint64

	StartedAt       time.Time
	RetentionSentAt time.Time
	CompletedAt     time.Time
}

// Exists reports whether the entry was ever written.
func (s *UserFunnelState) Exists() bool {
	return s != nil && s.Status != StatusNone
}

// IsCompleted reports whether the user reached the terminal state.
func (s *UserFunnelState) IsCompleted() bool {
	return s != nil && s.Status == StatusCompleted
}

// CancelTimer stops and forgets the pending retention timer, if any.
func (s *UserFunnelState) CancelTimer() {
	if s == nil || s.PendingTimer == nil {
		return
	}

	s.PendingTimer.Stop()
	s.PendingTimer = nil
	s.TimerSeq = 0
}
