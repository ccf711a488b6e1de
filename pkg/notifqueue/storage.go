package notifqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage handles queue entry persistence. The queue holds no in-memory
// state across calls; every operation is a read/modify/write against the
// storage, so multiple process instances can share one store.
type Storage interface {
	// Create persists a new entry. When the entry carries an idempotency
	// key that already exists, ErrDuplicateIdempotencyKey is returned and
	// no row is written. Uniqueness must be enforced by the storage, not
	// by a check-then-insert.
	Create(ctx context.Context, entry *Entry) error

	// GetByID returns the entry or ErrEntryNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByIdempotencyKey returns the entry holding the key, or
	// ErrEntryNotFound.
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)

	// Update persists the mutable fields of an existing entry.
	Update(ctx context.Context, entry *Entry) error

	// Claim atomically moves a PENDING entry to PROCESSING, incrementing
	// its attempt counter and stamping the attempt time. The conditional
	// update guarantees an entry is never claimed twice under concurrent
	// workers. Returns ErrAlreadyClaimed when the entry is not pending.
	Claim(ctx context.Context, id uuid.UUID) (*Entry, error)

	// CancelPending atomically moves a PENDING entry to CANCELLED.
	// Returns ErrNotCancellable when the entry already left PENDING.
	CancelPending(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListDue returns PENDING entries with scheduled_for <= now, ordered
	// by priority descending then scheduled_for ascending.
	ListDue(ctx context.Context, filter PendingFilter, now time.Time) ([]Entry, error)

	// ListByUser returns one page of the user's entries, newest first,
	// along with the total count matching the filter.
	ListByUser(ctx context.Context, userID string, filter HistoryFilter) ([]Entry, int, error)

	// Stats returns aggregate counts per status and the pending backlog
	// per priority.
	Stats(ctx context.Context) (*Stats, error)

	// DeleteTerminalBefore removes DELIVERED, FAILED, and CANCELLED
	// entries that reached their terminal state before the cutoff, judged
	// by updated_at since terminal entries see no further writes. PARTIAL
	// entries are kept for operator reconciliation.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ReleaseStuck resets PROCESSING entries whose last attempt started
	// before the cutoff back to PENDING so they become claimable again.
	ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error)
}
