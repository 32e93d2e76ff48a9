package state

import (
	"errors"
	"testing"
)

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{name: "new user to started", from: StatusNone, to: StatusStarted, expected: true},
		{name: "new user straight to completed", from: StatusNone, to: StatusCompleted, expected: true},
		{name: "started to awaiting", from: StatusStarted, to: StatusAwaitingCompletion, expected: true},
		{name: "started to completed", from: StatusStarted, to: StatusCompleted, expected: true},
		{name: "awaiting reset", from: StatusAwaitingCompletion, to: StatusAwaitingCompletion, expected: true},
		{name: "awaiting to completed", from: StatusAwaitingCompletion, to: StatusCompleted, expected: true},
		{name: "new user to awaiting invalid", from: StatusNone, to: StatusAwaitingCompletion, expected: false},
		{name: "awaiting back to started invalid", from: StatusAwaitingCompletion, to: StatusStarted, expected: false},
		{name: "completed to started invalid", from: StatusCompleted, to: StatusStarted, expected: false},
		{name: "completed to awaiting invalid", from: StatusCompleted, to: StatusAwaitingCompletion, expected: false},
		{name: "completed twice invalid", from: StatusCompleted, to: StatusCompleted, expected: false},
		{name: "unknown status invalid", from: Status("unknown"), to: StatusCompleted, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}

func TestUserFunnelState_TransitionTo(t *testing.T) {
	var recorded [][2]string
	RegisterTransitionRecorder(func(from, to string) {
		recorded = append(recorded, [2]string{from, to})
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	st := &UserFunnelState{}

	if err := st.TransitionTo(StatusStarted); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := st.TransitionTo(StatusAwaitingCompletion); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := st.TransitionTo(StatusCompleted); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := st.TransitionTo(StatusAwaitingCompletion)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if st.Status != StatusCompleted {
		t.Fatalf("status changed after rejected transition: %s", st.Status)
	}

	expected := [][2]string{
		{"none", "started"},
		{"started", "awaiting_completion"},
		{"awaiting_completion", "completed"},
	}
	if len(recorded) != len(expected) {
		t.Fatalf("expected %d recorded transitions, got %d", len(expected), len(recorded))
	}
	for i := range expected {
		if recorded[i] != expected[i] {
			t.Errorf("transition %d = %v, expected %v", i, recorded[i], expected[i])
		}
	}
}
