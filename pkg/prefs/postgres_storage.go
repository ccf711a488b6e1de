package prefs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStorage is a pgx-backed implementation of the Storage interface.
// The composite primary key on (user_id, notification_type) enforces the
// at-most-one-row-per-pair invariant at the database level.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new Postgres preference storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const prefColumns = `user_id, notification_type, push_enabled, email_enabled, in_app_enabled, sms_enabled,
	quiet_hours_start, quiet_hours_end, timezone, digest_enabled, digest_frequency, created_at, updated_at`

func (s *PostgresStorage) Get(ctx context.Context, userID string, typ Type) (*Preference, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+prefColumns+`
		FROM notification_preferences
		WHERE user_id = $1 AND notification_type = $2`,
		userID, typ)

	var pref Preference
	err := row.Scan(
		&pref.UserID, &pref.Type,
		&pref.PushEnabled, &pref.EmailEnabled, &pref.InAppEnabled, &pref.SMSEnabled,
		&pref.QuietHoursStart, &pref.QuietHoursEnd, &pref.Timezone,
		&pref.DigestEnabled, &pref.DigestFrequency,
		&pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to query preference: %w", err)
	}
	return &pref, nil
}

func (s *PostgresStorage) Upsert(ctx context.Context, pref *Preference) error {
	if pref.UserID == "" {
		return ErrUserIDRequired
	}
	if pref.Type == "" {
		return ErrTypeRequired
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (`+prefColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, notification_type) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			digest_enabled = EXCLUDED.digest_enabled,
			digest_frequency = EXCLUDED.digest_frequency,
			updated_at = EXCLUDED.updated_at`,
		pref.UserID, pref.Type,
		pref.PushEnabled, pref.EmailEnabled, pref.InAppEnabled, pref.SMSEnabled,
		pref.QuietHoursStart, pref.QuietHoursEnd, pref.Timezone,
		pref.DigestEnabled, pref.DigestFrequency,
		pref.CreatedAt, pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListByUser(ctx context.Context, userID string) ([]Preference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prefColumns+`
		FROM notification_preferences
		WHERE user_id = $1
		ORDER BY notification_type`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	var out []Preference
	for rows.Next() {
		var pref Preference
		if err := rows.Scan(
			&pref.UserID, &pref.Type,
			&pref.PushEnabled, &pref.EmailEnabled, &pref.InAppEnabled, &pref.SMSEnabled,
			&pref.QuietHoursStart, &pref.QuietHoursEnd, &pref.Timezone,
			&pref.DigestEnabled, &pref.DigestFrequency,
			&pref.CreatedAt, &pref.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		out = append(out, pref)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) SetQuietHoursForUser(ctx context.Context, userID string, start, end *string, timezone string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_preferences
		SET quiet_hours_start = $2,
			quiet_hours_end = $3,
			timezone = COALESCE(NULLIF($4, ''), timezone),
			updated_at = now()
		WHERE user_id = $1`,
		userID, start, end, timezone)
	if err != nil {
		return fmt.Errorf("failed to set quiet hours: %w", err)
	}
	return nil
}
