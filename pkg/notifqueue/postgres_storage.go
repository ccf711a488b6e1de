package notifqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// PostgresStorage is a pgx-backed implementation of the Storage interface.
//
// The concurrency guarantees live in the schema and the SQL: idempotency is
// a partial unique index on idempotency_key, and Claim/CancelPending are
// single conditional UPDATEs, so two workers can never win the same entry.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new Postgres queue storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const entryColumns = `id, user_id, notification_type, title, body, data, channels, priority, status,
	scheduled_for, attempts, max_attempts, last_attempt_at, delivered_at, failed_at,
	error_message, delivery_results, correlation_id, idempotency_key, created_at, updated_at`

func (s *PostgresStorage) Create(ctx context.Context, entry *Entry) error {
	data, results, err := marshalPayloads(entry)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_queue (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		entry.ID, entry.UserID, entry.Type, entry.Title, entry.Body,
		data, channelStrings(entry.Channels), entry.Priority, entry.Status,
		entry.ScheduledFor, entry.Attempts, entry.MaxAttempts,
		entry.LastAttemptAt, entry.DeliveredAt, entry.FailedAt,
		entry.ErrorMessage, results, entry.CorrelationID, entry.IdempotencyKey,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM notification_queue
		WHERE id = $1`, id)
	return scanEntry(row)
}

func (s *PostgresStorage) GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM notification_queue
		WHERE idempotency_key = $1`, key)
	return scanEntry(row)
}

func (s *PostgresStorage) Update(ctx context.Context, entry *Entry) error {
	data, results, err := marshalPayloads(entry)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_queue SET
			status = $2,
			scheduled_for = $3,
			attempts = $4,
			last_attempt_at = $5,
			delivered_at = $6,
			failed_at = $7,
			error_message = $8,
			delivery_results = $9,
			data = $10,
			updated_at = $11
		WHERE id = $1`,
		entry.ID, entry.Status, entry.ScheduledFor, entry.Attempts,
		entry.LastAttemptAt, entry.DeliveredAt, entry.FailedAt,
		entry.ErrorMessage, results, data, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *PostgresStorage) Claim(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE notification_queue SET
			status = 'processing',
			attempts = LEAST(attempts + 1, max_attempts),
			last_attempt_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+entryColumns, id)

	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}
	// The conditional update matched nothing: either the entry is gone or
	// another worker got there first.
	return nil, s.classifyMiss(ctx, id, ErrAlreadyClaimed)
}

func (s *PostgresStorage) CancelPending(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE notification_queue SET
			status = 'cancelled',
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+entryColumns, id)

	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}
	return nil, s.classifyMiss(ctx, id, ErrNotCancellable)
}

// classifyMiss distinguishes a missing row from a row in the wrong state
// after a conditional update matched nothing.
func (s *PostgresStorage) classifyMiss(ctx context.Context, id uuid.UUID, stateErr error) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_queue WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to inspect queue entry %s: %w", id, err)
	}
	if !exists {
		return ErrEntryNotFound
	}
	return stateErr
}

func (s *PostgresStorage) ListDue(ctx context.Context, filter PendingFilter, now time.Time) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM notification_queue
		WHERE status = 'pending' AND scheduled_for <= $1`
	args := []any{now}

	if filter.Priority != nil {
		query += ` AND priority = $2`
		args = append(args, *filter.Priority)
	}
	query += fmt.Sprintf(` ORDER BY priority DESC, scheduled_for ASC LIMIT %d`, filter.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStorage) ListByUser(ctx context.Context, userID string, filter HistoryFilter) ([]Entry, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where += fmt.Sprintf(` AND notification_type = $%d`, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notification_queue`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count user history: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM notification_queue` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user history: %w", err)
	}
	defer rows.Close()

	items, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PostgresStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByPriority: make(map[string]int)}

	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*)
		FROM notification_queue
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusDelivered:
			stats.Delivered = count
		case StatusPartial:
			stats.Partial = count
		case StatusFailed:
			stats.Failed = count
		case StatusCancelled:
			stats.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prioRows, err := s.pool.Query(ctx, `
		SELECT priority, count(*)
		FROM notification_queue
		WHERE status = 'pending'
		GROUP BY priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate priority stats: %w", err)
	}
	defer prioRows.Close()

	for prioRows.Next() {
		var priority Priority
		var count int
		if err := prioRows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority stats row: %w", err)
		}
		stats.ByPriority[priority.String()] = count
	}
	return stats, prioRows.Err()
}

func (s *PostgresStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	// Terminal entries are never updated again, so updated_at is the moment
	// the entry reached its terminal state.
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notification_queue
		WHERE status IN ('delivered', 'failed', 'cancelled')
		AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_queue SET
			status = 'pending',
			updated_at = now()
		WHERE status = 'processing' AND last_attempt_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release stuck entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Helpers

func marshalPayloads(entry *Entry) (data, results []byte, err error) {
	if entry.Data != nil {
		data, err = json.Marshal(entry.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal entry data: %w", err)
		}
	}
	if entry.DeliveryResults != nil {
		results, err = json.Marshal(entry.DeliveryResults)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal delivery results: %w", err)
		}
	}
	return data, results, nil
}

func channelStrings(channels []prefs.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var entry Entry
	var data, results []byte
	var channels []string

	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Type, &entry.Title, &entry.Body,
		&data, &channels, &entry.Priority, &entry.Status,
		&entry.ScheduledFor, &entry.Attempts, &entry.MaxAttempts,
		&entry.LastAttemptAt, &entry.DeliveredAt, &entry.FailedAt,
		&entry.ErrorMessage, &results, &entry.CorrelationID, &entry.IdempotencyKey,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}

	entry.Channels = make([]prefs.Channel, len(channels))
	for i, c := range channels {
		entry.Channels[i] = prefs.Channel(c)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entry.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry data: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &entry.DeliveryResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery results: %w", err)
		}
	}
	return &entry, nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}
