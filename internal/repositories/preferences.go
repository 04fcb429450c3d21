package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunemeld/internal/shared"
)

// Preference is a stored key/value pair.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// PreferenceRepository stores preferences in the preferences table. It satisfies state.Preferences.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new PreferenceRepository with the given database connection
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the value stored under key, or [shared.ErrPreferenceNotFound].
func (r *PreferenceRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", shared.ErrPreferenceNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or overwrites the value stored under key.
func (r *PreferenceRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: preference key is empty", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key returns [shared.ErrPreferenceNotFound].
func (r *PreferenceRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPreferenceNotFound, key)
	}
	return nil
}

// List returns every preference ordered by key.
func (r *PreferenceRepository) List(ctx context.Context) ([]Preference, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return prefs, nil
}
