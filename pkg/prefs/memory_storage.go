package prefs

import (
	"context"
	"sort"
	"sync"
	"time"
)

type prefKey struct {
	userID string
	typ    Type
}

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	mu    sync.RWMutex
	prefs map[prefKey]*Preference
}

// NewMemoryStorage creates a new in-memory preference storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[prefKey]*Preference),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, userID string, typ Type) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[prefKey{userID: userID, typ: typ}]
	if !ok {
		return nil, ErrPreferenceNotFound
	}

	// Return a copy to prevent external mutation of stored data.
	cp := *pref
	return &cp, nil
}

func (s *MemoryStorage) Upsert(ctx context.Context, pref *Preference) error {
	if pref.UserID == "" {
		return ErrUserIDRequired
	}
	if pref.Type == "" {
		return ErrTypeRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *pref
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.prefs[prefKey{userID: cp.UserID, typ: cp.Type}] = &cp
	return nil
}

func (s *MemoryStorage) ListByUser(ctx context.Context, userID string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Preference
	for key, pref := range s.prefs {
		if key.userID == userID {
			out = append(out, *pref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (s *MemoryStorage) SetQuietHoursForUser(ctx context.Context, userID string, start, end *string, timezone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, pref := range s.prefs {
		if key.userID != userID {
			continue
		}
		pref.QuietHoursStart = start
		pref.QuietHoursEnd = end
		if timezone != "" {
			pref.Timezone = timezone
		}
		pref.UpdatedAt = now
	}
	return nil
}
