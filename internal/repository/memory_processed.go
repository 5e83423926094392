package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryProcessedStore is the single-instance fallback used when no Redis is
// configured.
type MemoryProcessedStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	marks map[string]time.Time
	now   func() time.Time
}

func NewMemoryProcessedStore(ttl time.Duration) *MemoryProcessedStore {
	return &MemoryProcessedStore{
		ttl:   ttl,
		marks: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (s *MemoryProcessedStore) IsProcessed(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(orderID), nil
}

func (s *MemoryProcessedStore) Claim(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveLocked(orderID) {
		return false, nil
	}
	s.marks[orderID] = s.now()
	return true, nil
}

func (s *MemoryProcessedStore) liveLocked(orderID string) bool {
	at, ok := s.marks[orderID]
	if !ok {
		return false
	}
	if s.ttl > 0 && s.now().Sub(at) > s.ttl {
		delete(s.marks, orderID)
		return false
	}
	return true
}
