package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultHistoryLimit is how many visits [RouteHistoryRepository] keeps when no limit is given.
const DefaultHistoryLimit = 100

// ErrNoVisits is returned by [RouteHistoryRepository.Last] when nothing has been recorded.
var ErrNoVisits = errors.New("no route visits recorded")

// Visit is one resolved location.
type Visit struct {
	ID        int64
	Location  string
	Genre     string
	Rank      string
	VisitedAt time.Time
}

// RouteHistoryRepository records resolved router locations in the route_history table.
//
// Only the newest limit visits are kept; older rows are pruned on insert.
type RouteHistoryRepository struct {
	db    *sql.DB
	limit int
	now   func() time.Time
}

// NewRouteHistoryRepository creates a repository keeping at most limit visits ([DefaultHistoryLimit] when limit <= 0).
func NewRouteHistoryRepository(db *sql.DB, limit int) *RouteHistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RouteHistoryRepository{db: db, limit: limit, now: time.Now}
}

// RecordVisit stores location with its genre and rank query parameters.
func (r *RouteHistoryRepository) RecordVisit(ctx context.Context, location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("invalid location %q: %w", location, err)
	}
	q := u.Query()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO route_history (location, genre, rank, visited_at) VALUES (?, ?, ?, ?)`,
			u.String(), q.Get("genre"), q.Get("rank"), r.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert visit: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM route_history
			WHERE id NOT IN (SELECT id FROM route_history ORDER BY id DESC LIMIT ?)
		`, r.limit)
		if err != nil {
			return fmt.Errorf("failed to prune visits: %w", err)
		}
		return nil
	})
}

// Last returns the most recent visit, or [ErrNoVisits].
func (r *RouteHistoryRepository) Last(ctx context.Context) (*Visit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, location, genre, rank, visited_at
		FROM route_history
		ORDER BY id DESC
		LIMIT 1
	`)

	var v Visit
	err := row.Scan(&v.ID, &v.Location, &v.Genre, &v.Rank, &v.VisitedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoVisits
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan visit: %w", err)
	}
	return &v, nil
}

// List returns up to n visits, newest first.
func (r *RouteHistoryRepository) List(ctx context.Context, n int) ([]Visit, error) {
	if n <= 0 {
		n = r.limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, location, genre, rank, visited_at
		FROM route_history
		ORDER BY id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.Location, &v.Genre, &v.Rank, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return visits, nil
}

// Clear deletes every recorded visit.
func (r *RouteHistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM route_history`); err != nil {
		return fmt.Errorf("failed to clear visits: %w", err)
	}
	return nil
}
