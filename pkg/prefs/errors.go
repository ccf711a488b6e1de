package prefs

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrPreferenceNotFound is returned when no preference row exists for
	// the requested (user, type) pair.
	ErrPreferenceNotFound = errors.New("preference not found")

	// ErrInvalidTimeFormat is returned when a quiet-hours bound does not
	// match the strict 24-hour HH:MM pattern.
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM 24-hour format")

	// ErrUserIDRequired is returned when an empty user ID is provided.
	ErrUserIDRequired = errors.New("user ID is required")

	// ErrTypeRequired is returned when an empty notification type is provided.
	ErrTypeRequired = errors.New("notification type is required")
)
