package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStorage is a pgx-backed implementation of the Storage interface.
// Attempt rows cascade with queue-entry cleanup via the foreign key.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new Postgres attempt storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const attemptColumns = `id, queue_id, user_id, channel, status, provider, device_id, push_token,
	email_address, provider_message_id, error_code, error_message,
	sent_at, delivered_at, read_at, failed_at, created_at, updated_at`

func (s *PostgresStorage) Create(ctx context.Context, attempt *Attempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_delivery_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		attempt.ID, attempt.QueueID, attempt.UserID, attempt.Channel, attempt.Status,
		attempt.Provider, attempt.DeviceID, attempt.PushToken, attempt.EmailAddress,
		attempt.ProviderMessageID, attempt.ErrorCode, attempt.ErrorMessage,
		attempt.SentAt, attempt.DeliveredAt, attempt.ReadAt, attempt.FailedAt,
		attempt.CreatedAt, attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM notification_delivery_attempts
		WHERE id = $1`, id)
	return scanAttempt(row)
}

func (s *PostgresStorage) Update(ctx context.Context, attempt *Attempt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_delivery_attempts SET
			status = $2,
			provider_message_id = $3,
			error_code = $4,
			error_message = $5,
			sent_at = $6,
			delivered_at = $7,
			read_at = $8,
			failed_at = $9,
			updated_at = $10
		WHERE id = $1`,
		attempt.ID, attempt.Status,
		attempt.ProviderMessageID, attempt.ErrorCode, attempt.ErrorMessage,
		attempt.SentAt, attempt.DeliveredAt, attempt.ReadAt, attempt.FailedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *PostgresStorage) ListByQueueID(ctx context.Context, queueID uuid.UUID) ([]Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM notification_delivery_attempts
		WHERE queue_id = $1
		ORDER BY created_at ASC`, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *attempt)
	}
	return out, rows.Err()
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var attempt Attempt
	err := row.Scan(
		&attempt.ID, &attempt.QueueID, &attempt.UserID, &attempt.Channel, &attempt.Status,
		&attempt.Provider, &attempt.DeviceID, &attempt.PushToken, &attempt.EmailAddress,
		&attempt.ProviderMessageID, &attempt.ErrorCode, &attempt.ErrorMessage,
		&attempt.SentAt, &attempt.DeliveredAt, &attempt.ReadAt, &attempt.FailedAt,
		&attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
	}
	return &attempt, nil
}
