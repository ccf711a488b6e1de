package delivery

import (
	"context"

	"github.com/google/uuid"
)

// Storage handles delivery attempt persistence.
type Storage interface {
	// Create persists a new attempt row.
	Create(ctx context.Context, attempt *Attempt) error

	// GetByID returns the attempt or ErrAttemptNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error)

	// Update persists the mutable fields of an existing attempt.
	Update(ctx context.Context, attempt *Attempt) error

	// ListByQueueID returns every attempt recorded against a queue entry,
	// oldest first.
	ListByQueueID(ctx context.Context, queueID uuid.UUID) ([]Attempt, error)
}
