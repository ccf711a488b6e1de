package notifqueue

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrResolverNil is returned when a nil preference resolver is provided.
	ErrResolverNil = errors.New("preference resolver cannot be nil")

	// ErrEntryNotFound is returned when no queue entry exists for the id.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrAlreadyClaimed is returned when a claim races with another worker
	// or targets an entry that is no longer pending.
	ErrAlreadyClaimed = errors.New("queue entry is not pending, claim refused")

	// ErrNotCancellable is returned when cancellation targets an entry
	// that already left the PENDING state.
	ErrNotCancellable = errors.New("only pending entries can be cancelled")

	// ErrDuplicateIdempotencyKey is returned by storages when an insert
	// hits the idempotency-key uniqueness constraint. The queue resolves
	// it by returning the existing entry; callers never see it.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

	// ErrInvalidPriority is returned when an unknown priority level is given.
	ErrInvalidPriority = errors.New("invalid priority level")

	// ErrUserIDRequired is returned when an empty user ID is provided.
	ErrUserIDRequired = errors.New("user ID is required")

	// ErrTypeRequired is returned when an empty notification type is provided.
	ErrTypeRequired = errors.New("notification type is required")

	// ErrTitleRequired is returned when an empty title is provided.
	ErrTitleRequired = errors.New("title is required")

	// ErrInvalidRetention is returned when cleanup is asked to keep a
	// non-positive number of days.
	ErrInvalidRetention = errors.New("days to keep must be positive")

	// ErrInvalidReclaimAge is returned when stuck-entry reclaim is given a
	// non-positive age.
	ErrInvalidReclaimAge = errors.New("reclaim age must be positive")
)
