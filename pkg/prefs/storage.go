package prefs

import "context"

// Storage handles preference persistence and retrieval.
type Storage interface {
	// Get retrieves a single preference row. Returns ErrPreferenceNotFound
	// when no row exists for the pair.
	Get(ctx context.Context, userID string, typ Type) (*Preference, error)

	// Upsert inserts or replaces the preference row for (UserID, Type).
	Upsert(ctx context.Context, pref *Preference) error

	// ListByUser returns every preference row stored for the user.
	ListByUser(ctx context.Context, userID string) ([]Preference, error)

	// SetQuietHoursForUser applies the quiet-hours bounds (and timezone,
	// when non-empty) to every preference row of the user in one batch.
	SetQuietHoursForUser(ctx context.Context, userID string, start, end *string, timezone string) error
}
