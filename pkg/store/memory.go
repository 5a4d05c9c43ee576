package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local development and tests. Expiry
// is enforced lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// Get implements Store. The expiry check and delete happen under one lock so
// a concurrent Put can never have its fresh record evicted.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !rec.expiresAt.IsZero() && s.now().After(rec.expiresAt) {
		delete(s.records, key)
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored record.
	out := make([]byte, len(rec.value))
	copy(out, rec.value)
	return out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{value: stored, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.records = make(map[string]memoryRecord)
	s.mu.Unlock()
	return nil
}
