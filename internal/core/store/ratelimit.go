package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadDeadline returns the stored reset deadline for key.
func (s *Store) LoadDeadline(ctx context.Context, key string) (time.Time, bool, error) {
	if s == nil || s.DB == nil {
		return time.Time{}, false, errors.New("store is not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false, errors.New("deadline key is required")
	}

	var resetAt int64
	row := s.DB.QueryRowContext(ctx, `
		SELECT reset_at
		FROM rate_limit_deadlines
		WHERE key = ?
	`, key)

	if err := row.Scan(&resetAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("fetch rate limit deadline: %w", err)
	}

	return time.Unix(resetAt, 0).UTC(), true, nil
}

// StoreDeadline upserts the reset deadline for key.
func (s *Store) StoreDeadline(ctx context.Context, key string, resetAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("deadline key is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_limit_deadlines (key, reset_at, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			reset_at = excluded.reset_at,
			recorded_at = excluded.recorded_at
	`, key, resetAt.UTC().Unix(), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store rate limit deadline: %w", err)
	}

	return nil
}

// ClearDeadline deletes the deadline for key. Clearing a missing key is not
// an error.
func (s *Store) ClearDeadline(ctx context.Context, key string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limit_deadlines WHERE key = ?`, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("clear rate limit deadline: %w", err)
	}
	return nil
}
