package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore keeps records in process memory. It is used when Redis is
// disabled; expired entries are dropped lazily and by Purge.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	locks   map[string]time.Time
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		locks:   make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Lock(_ context.Context, key string, lockTTL time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.locks[key]; ok && now.Before(until) {
		return false, nil
	}

	s.locks[key] = now.Add(lockTTL)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.records, key)
		return nil, nil
	}

	record := entry.record
	return &record, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = memoryRecord{record: *record, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, key)
	return nil
}

// Purge removes expired records and stale locks.
func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.records {
		if !now.Before(entry.expiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	for key, until := range s.locks {
		if !now.Before(until) {
			delete(s.locks, key)
		}
	}

	return removed, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
