package notifqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// MemoryStorage implements the Storage interface in memory, for testing and
// local development. All conditional transitions happen under one mutex, so
// it provides the same claim and idempotency guarantees as a real store.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	byKey   map[string]uuid.UUID // idempotency key -> entry
}

// NewMemoryStorage creates a new in-memory queue storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[uuid.UUID]*Entry),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.IdempotencyKey != nil {
		if _, exists := s.byKey[*entry.IdempotencyKey]; exists {
			return ErrDuplicateIdempotencyKey
		}
	}

	cp := cloneEntry(entry)
	s.entries[entry.ID] = cp
	if cp.IdempotencyKey != nil {
		s.byKey[*cp.IdempotencyKey] = cp.ID
	}
	return nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return cloneEntry(entry), nil
}

func (s *MemoryStorage) GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return cloneEntry(s.entries[id]), nil
}

func (s *MemoryStorage) Update(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; !ok {
		return ErrEntryNotFound
	}
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *MemoryStorage) Claim(ctx context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	if entry.Status != StatusPending {
		return nil, ErrAlreadyClaimed
	}

	now := time.Now()
	entry.Status = StatusProcessing
	if entry.Attempts < entry.MaxAttempts {
		entry.Attempts++
	}
	entry.LastAttemptAt = &now
	entry.UpdatedAt = now

	return cloneEntry(entry), nil
}

func (s *MemoryStorage) CancelPending(ctx context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	if entry.Status != StatusPending {
		return nil, ErrNotCancellable
	}

	entry.Status = StatusCancelled
	entry.UpdatedAt = time.Now()

	return cloneEntry(entry), nil
}

func (s *MemoryStorage) ListDue(ctx context.Context, filter PendingFilter, now time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*Entry
	for _, entry := range s.entries {
		if entry.Status != StatusPending {
			continue
		}
		if entry.ScheduledFor.After(now) {
			continue
		}
		if filter.Priority != nil && entry.Priority != *filter.Priority {
			continue
		}
		due = append(due, entry)
	}

	// Priority descending, earliest-due first within a priority band.
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})

	if filter.Limit > 0 && len(due) > filter.Limit {
		due = due[:filter.Limit]
	}

	out := make([]Entry, len(due))
	for i, entry := range due {
		out[i] = *cloneEntry(entry)
	}
	return out, nil
}

func (s *MemoryStorage) ListByUser(ctx context.Context, userID string, filter HistoryFilter) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Entry
	for _, entry := range s.entries {
		if entry.UserID != userID {
			continue
		}
		if filter.Status != nil && entry.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && entry.Type != *filter.Type {
			continue
		}
		matched = append(matched, entry)
	}

	// Newest first.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]Entry, len(matched))
	for i, entry := range matched {
		out[i] = *cloneEntry(entry)
	}
	return out, total, nil
}

func (s *MemoryStorage) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByPriority: make(map[string]int)}
	for _, entry := range s.entries {
		switch entry.Status {
		case StatusPending:
			stats.Pending++
			stats.ByPriority[entry.Priority.String()]++
		case StatusProcessing:
			stats.Processing++
		case StatusDelivered:
			stats.Delivered++
		case StatusPartial:
			stats.Partial++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *MemoryStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, entry := range s.entries {
		switch entry.Status {
		case StatusDelivered, StatusFailed, StatusCancelled:
		default:
			continue
		}
		if !entry.UpdatedAt.Before(cutoff) {
			continue
		}
		if entry.IdempotencyKey != nil {
			delete(s.byKey, *entry.IdempotencyKey)
		}
		delete(s.entries, id)
		deleted++
	}
	return deleted, nil
}

func (s *MemoryStorage) ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var released int64
	for _, entry := range s.entries {
		if entry.Status != StatusProcessing {
			continue
		}
		if entry.LastAttemptAt == nil || entry.LastAttemptAt.After(cutoff) {
			continue
		}
		entry.Status = StatusPending
		entry.UpdatedAt = now
		released++
	}
	return released, nil
}

// cloneEntry deep-copies an entry so callers never share storage state.
func cloneEntry(entry *Entry) *Entry {
	cp := *entry
	if entry.Channels != nil {
		cp.Channels = make([]prefs.Channel, len(entry.Channels))
		copy(cp.Channels, entry.Channels)
	}
	if entry.Data != nil {
		cp.Data = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			cp.Data[k] = v
		}
	}
	if entry.DeliveryResults != nil {
		cp.DeliveryResults = make(map[string]any, len(entry.DeliveryResults))
		for k, v := range entry.DeliveryResults {
			cp.DeliveryResults[k] = v
		}
	}
	return &cp
}
