package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// Tracker records per-channel delivery attempts tied to queue entries. It
// never mutates the parent entry; the worker aggregates attempt outcomes
// and reports them to the queue separately.
type Tracker struct {
	storage Storage
}

// NewTracker creates a new delivery tracker.
func NewTracker(storage Storage) (*Tracker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &Tracker{storage: storage}, nil
}

// RecordParams describes a new delivery attempt. The addressing fields are
// channel-specific and optional; senders fill in whichever apply.
type RecordParams struct {
	QueueID      uuid.UUID
	UserID       string
	Channel      prefs.Channel
	Provider     string
	DeviceID     string
	PushToken    string
	EmailAddress string
}

// Record creates a PENDING attempt row for a send that is about to start.
// Attempts are not deduplicated per (queue entry, channel); retries within
// one processing pass produce separate rows.
func (t *Tracker) Record(ctx context.Context, params RecordParams) (*Attempt, error) {
	if params.QueueID == uuid.Nil {
		return nil, ErrQueueIDRequired
	}
	if params.UserID == "" {
		return nil, ErrUserIDRequired
	}
	if params.Channel == "" {
		return nil, ErrChannelRequired
	}

	now := time.Now()
	attempt := &Attempt{
		ID:           uuid.New(),
		QueueID:      params.QueueID,
		UserID:       params.UserID,
		Channel:      params.Channel,
		Status:       StatusPending,
		Provider:     optional(params.Provider),
		DeviceID:     optional(params.DeviceID),
		PushToken:    optional(params.PushToken),
		EmailAddress: optional(params.EmailAddress),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := t.storage.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return attempt, nil
}

// UpdateParams carries provider feedback attached to a status change.
type UpdateParams struct {
	ProviderMessageID string
	ErrorCode         string
	ErrorMessage      string
}

// UpdateStatus advances an attempt along the delivery pipeline and stamps
// the timestamp matching the new status. Transitions must move forward
// (pending → sent → delivered → read); failed and bounced are terminal and
// reachable from any pre-terminal state.
func (t *Tracker) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, params UpdateParams) (*Attempt, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	attempt, err := t.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, attempt.Status, status)
	}

	now := time.Now()
	attempt.Status = status
	attempt.UpdatedAt = now

	switch status {
	case StatusSent:
		attempt.SentAt = &now
	case StatusDelivered:
		attempt.DeliveredAt = &now
	case StatusRead:
		attempt.ReadAt = &now
	case StatusFailed, StatusBounced:
		attempt.FailedAt = &now
	}

	if params.ProviderMessageID != "" {
		attempt.ProviderMessageID = &params.ProviderMessageID
	}
	if params.ErrorCode != "" {
		attempt.ErrorCode = &params.ErrorCode
	}
	if params.ErrorMessage != "" {
		attempt.ErrorMessage = &params.ErrorMessage
	}

	if err := t.storage.Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update delivery attempt %s: %w", id, err)
	}
	return attempt, nil
}

// ListForEntry returns every attempt recorded against a queue entry.
func (t *Tracker) ListForEntry(ctx context.Context, queueID uuid.UUID) ([]Attempt, error) {
	if queueID == uuid.Nil {
		return nil, ErrQueueIDRequired
	}
	return t.storage.ListByQueueID(ctx, queueID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
