package notifqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// PreferenceResolver supplies the per-user channel configuration consulted
// once at enqueue time. Satisfied by *prefs.Service.
type PreferenceResolver interface {
	GetOrCreate(ctx context.Context, userID string, typ prefs.Type) (*prefs.Preference, error)
}

// Queue is the durable, prioritized, idempotent notification queue. It owns
// the entry state machine; delivery itself happens outside, in a worker that
// polls Pending and reports outcomes back through the MarkX methods.
type Queue struct {
	storage  Storage
	resolver PreferenceResolver
	logger   *slog.Logger
}

// NewQueue creates a new notification queue.
func NewQueue(storage Storage, resolver PreferenceResolver, opts ...QueueOption) (*Queue, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	q := &Queue{
		storage:  storage,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue persists a notification request and returns the entry.
//
// When an idempotency key is supplied and an entry already holds it, that
// entry is returned unchanged. When the user's preferences leave no channel
// enabled, the entry is persisted immediately CANCELLED for audit instead of
// being dropped. Non-critical entries enqueued inside the user's quiet hours
// are deferred to the end of the window; CRITICAL priority bypasses quiet
// hours unconditionally.
func (q *Queue) Enqueue(ctx context.Context, userID string, typ prefs.Type, title, body string, opts ...EnqueueOption) (*Entry, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if typ == "" {
		return nil, ErrTypeRequired
	}
	if title == "" {
		return nil, ErrTitleRequired
	}

	options := &enqueueOptions{
		priority:    PriorityNormal,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}
	if !options.priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if options.idempotencyKey != "" {
		existing, err := q.storage.GetByIdempotencyKey(ctx, options.idempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	pref, err := q.resolver.GetOrCreate(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preferences for user %s: %w", userID, err)
	}

	now := time.Now()
	entry := &Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Body:        body,
		Data:        options.data,
		Channels:    pref.EnabledChannels(),
		Priority:    options.priority,
		Status:      StatusPending,
		ScheduledFor: now,
		MaxAttempts: options.maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if options.scheduledFor != nil {
		entry.ScheduledFor = *options.scheduledFor
	}
	if options.correlationID != "" {
		entry.CorrelationID = &options.correlationID
	}
	if options.idempotencyKey != "" {
		entry.IdempotencyKey = &options.idempotencyKey
	}

	if len(entry.Channels) == 0 {
		// Persisted anyway so the opt-out shows up in history and audits.
		msg := NoChannelsMessage
		entry.Status = StatusCancelled
		entry.ErrorMessage = &msg
	} else if entry.Priority != PriorityCritical && pref.InQuietHoursAt(now) {
		// Deferral only ever pushes delivery later; an explicit schedule
		// beyond the window is kept as-is.
		if end, ok := pref.QuietHoursEndAt(now); ok && end.After(entry.ScheduledFor) {
			entry.ScheduledFor = end
		}
	}

	if err := q.storage.Create(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) && options.idempotencyKey != "" {
			// Lost a concurrent enqueue race; the winner's entry is the
			// canonical one for this key.
			return q.storage.GetByIdempotencyKey(ctx, options.idempotencyKey)
		}
		return nil, fmt.Errorf("failed to create queue entry: %w", err)
	}

	q.logger.LogAttrs(ctx, slog.LevelDebug, "notification enqueued",
		logger.EntryID(entry.ID),
		logger.UserID(userID),
		logger.NotificationType(string(typ)),
		slog.String("priority", entry.Priority.String()),
		slog.String("status", string(entry.Status)),
		slog.Time("scheduled_for", entry.ScheduledFor),
	)

	return entry, nil
}

// Pending returns due PENDING entries ordered by priority descending, then
// scheduled time ascending. This ordering is the scheduling contract workers
// must honor.
func (q *Queue) Pending(ctx context.Context, filter PendingFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPendingLimit
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	return q.storage.ListDue(ctx, filter, time.Now())
}

// MarkProcessing claims an entry for delivery. The claim is an atomic
// conditional update, so concurrent workers cannot both win; the loser gets
// ErrAlreadyClaimed. Must be called before any send attempt so a crashed
// worker never leaves an entry with an unrecorded attempt.
func (q *Queue) MarkProcessing(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return q.storage.Claim(ctx, id)
}

// MarkDelivered records a fully successful delivery.
func (q *Queue) MarkDelivered(ctx context.Context, id uuid.UUID, results map[string]any) (*Entry, error) {
	entry, err := q.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry.Status = StatusDelivered
	entry.DeliveredAt = &now
	entry.DeliveryResults = results
	entry.UpdatedAt = now

	if err := q.storage.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to mark entry %s delivered: %w", id, err)
	}
	return entry, nil
}

// MarkPartial records a delivery where some channels succeeded and others
// failed. PARTIAL is terminal for the entry but excluded from cleanup so the
// per-channel failures stay visible until reconciled.
func (q *Queue) MarkPartial(ctx context.Context, id uuid.UUID, results map[string]any) (*Entry, error) {
	entry, err := q.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry.Status = StatusPartial
	entry.DeliveredAt = &now
	entry.DeliveryResults = results
	entry.UpdatedAt = now

	if err := q.storage.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to mark entry %s partial: %w", id, err)
	}
	return entry, nil
}

// MarkFailed records a failed delivery attempt. The attempt counter is
// consumed by Claim, never here; this method only reads it. While the budget
// lasts, the entry goes back to PENDING with exponential backoff
// (3^attempts minutes: 3 after the first attempt, then 9, 27); once
// attempts reaches MaxAttempts the entry becomes terminal FAILED.
func (q *Queue) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (*Entry, error) {
	entry, err := q.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry.ErrorMessage = &errorMessage
	entry.UpdatedAt = now

	if entry.Attempts >= entry.MaxAttempts {
		entry.Status = StatusFailed
		entry.FailedAt = &now
	} else {
		entry.Status = StatusPending
		entry.ScheduledFor = now.Add(backoffDelay(entry.Attempts))
	}

	if err := q.storage.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to mark entry %s failed: %w", id, err)
	}

	if entry.Status == StatusFailed {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "notification failed permanently",
			logger.EntryID(entry.ID),
			logger.UserID(entry.UserID),
			slog.Int("attempts", entry.Attempts),
			slog.String("error", errorMessage),
		)
	} else {
		q.logger.LogAttrs(ctx, slog.LevelDebug, "notification rescheduled after failure",
			logger.EntryID(entry.ID),
			slog.Int("attempts", entry.Attempts),
			slog.Time("scheduled_for", entry.ScheduledFor),
		)
	}

	return entry, nil
}

// Cancel moves a PENDING entry to CANCELLED. Entries that a worker already
// claimed are not interrupted; cancellation of anything past PENDING returns
// ErrNotCancellable.
func (q *Queue) Cancel(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return q.storage.CancelPending(ctx, id)
}

// UserHistory returns one page of the user's notification history, newest
// first, optionally filtered by status and type.
func (q *Queue) UserHistory(ctx context.Context, userID string, filter HistoryFilter) (*History, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPendingLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := q.storage.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for user %s: %w", userID, err)
	}
	return &History{Items: items, Total: total}, nil
}

// Stats returns aggregate queue counts.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	return q.storage.Stats(ctx)
}

// Cleanup purges DELIVERED, FAILED, and CANCELLED entries that have been
// terminal for longer than the retention window and returns the number of
// rows removed. PARTIAL entries accumulate until manually reconciled.
func (q *Queue) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := q.storage.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old notifications: %w", err)
	}

	if deleted > 0 {
		q.logger.LogAttrs(ctx, slog.LevelInfo, "old notifications purged",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}

// ReclaimStuck releases PROCESSING entries whose last attempt started more
// than olderThan ago back to PENDING. This recovers entries claimed by
// workers that crashed mid-delivery; the age should exceed the longest
// plausible send so in-flight work is never stolen.
func (q *Queue) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidReclaimAge
	}

	cutoff := time.Now().Add(-olderThan)
	released, err := q.storage.ReleaseStuck(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stuck entries: %w", err)
	}

	if released > 0 {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "stuck processing entries reclaimed",
			slog.Int64("released", released),
			slog.Time("cutoff", cutoff),
		)
	}
	return released, nil
}

// backoffDelay returns 3^attempts minutes.
func backoffDelay(attempts int) time.Duration {
	delay := time.Minute
	for range attempts {
		delay *= 3
	}
	return delay
}
