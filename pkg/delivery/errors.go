package delivery

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrAttemptNotFound is returned when no attempt exists for the id.
	ErrAttemptNotFound = errors.New("delivery attempt not found")

	// ErrInvalidStatus is returned when an unknown attempt status is given.
	ErrInvalidStatus = errors.New("invalid delivery status")

	// ErrInvalidTransition is returned when a status update would move the
	// attempt backwards along the pipeline or out of a terminal state.
	ErrInvalidTransition = errors.New("delivery status transition is not allowed")

	// ErrQueueIDRequired is returned when an attempt references no queue entry.
	ErrQueueIDRequired = errors.New("queue entry ID is required")

	// ErrUserIDRequired is returned when an empty user ID is provided.
	ErrUserIDRequired = errors.New("user ID is required")

	// ErrChannelRequired is returned when an empty channel is provided.
	ErrChannelRequired = errors.New("channel is required")
)
