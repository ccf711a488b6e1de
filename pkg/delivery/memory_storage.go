package delivery

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]*Attempt
	byQueue  map[uuid.UUID][]uuid.UUID
}

// NewMemoryStorage creates a new in-memory attempt storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		attempts: make(map[uuid.UUID]*Attempt),
		byQueue:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *attempt
	s.attempts[attempt.ID] = &cp
	s.byQueue[attempt.QueueID] = append(s.byQueue[attempt.QueueID], attempt.ID)
	return nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *attempt
	return &cp, nil
}

func (s *MemoryStorage) Update(ctx context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; !ok {
		return ErrAttemptNotFound
	}
	cp := *attempt
	s.attempts[attempt.ID] = &cp
	return nil
}

func (s *MemoryStorage) ListByQueueID(ctx context.Context, queueID uuid.UUID) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byQueue[queueID]
	out := make([]Attempt, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.attempts[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
