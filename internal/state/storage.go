// Package state keeps the in-memory funnel state of every user.
package state

import (
	"sort"
	"sync"
)

// Store maps user identities to their funnel state. Every mutation of a user's
// entry runs under a lock owned by that user only, so events of different users
// never wait for each other.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu    sync.Mutex
	state UserFunnelState
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

// Update runs fn against the user's entry while holding the user's lock.
// The entry is created on first use and is never removed.
func (s *Store) Update(userID int64, fn func(st *UserFunnelState)) {
	if fn == nil {
		return
	}

	e := s.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.state)
}

// Get returns a copy of the user's entry and whether it exists.
func (s *Store) Get(userID int64) (UserFunnelState, bool) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()

	if !ok {
		return UserFunnelState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state, e.state.Exists()
}

// Snapshot returns copies of every written entry ordered by user id.
func (s *Store) Snapshot() []UserFunnelState {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	result := make([]UserFunnelState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		st := e.state
		e.mu.Unlock()

		if st.Exists() {
			result = append(result, st)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })

	return result
}

// Len returns the number of written entries.
func (s *Store) Len() int {
	return len(s.Snapshot())
}

func (s *Store) entry(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}

	return e
}
