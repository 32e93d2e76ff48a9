package state

import "errors"

// ErrInvalidTransition indicates that a requested funnel transition is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe funnel transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// validTransitions lists every permitted move. Nothing leaves StatusCompleted.
var validTransitions = map[Status][]Status{
	StatusNone: {
		StatusStarted,
		StatusCompleted,
	},
	StatusStarted: {
		StatusAwaitingCompletion,
		StatusCompleted,
	},
	StatusAwaitingCompletion: {
		StatusAwaitingCompletion,
		StatusCompleted,
	},
}

// IsTransitionAllowed reports whether moving from one status to another is valid.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}

	return false
}

// TransitionTo moves the entry to the provided status if the move is allowed.
// Callers must hold the user's lock, see Store.Update.
func (s *UserFunnelState) TransitionTo(to Status) error {
	if !IsTransitionAllowed(s.Status, to) {
		return ErrInvalidTransition
	}

	from := s.Status
	s.Status = to
	transitionRecorder(statusLabel(from), statusLabel(to))

	return nil
}

func statusLabel(s Status) string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}
