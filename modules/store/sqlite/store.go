package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gemgram/gemgram/internal/stats"
)

// counterStore implements the stats interfaces backed by SQLite.
type counterStore struct {
	db *sql.DB
}

// Increment adds one to the named counter for today (UTC).
func (s *counterStore) Increment(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (day, name, value) VALUES (?, ?, 1)
		ON CONFLICT (day, name) DO UPDATE SET value = value + 1`,
		stats.Day(time.Now()), name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: increment %s: %w", name, err)
	}
	return nil
}

// Totals returns the all-time sum of every counter.
func (s *counterStore) Totals(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, SUM(value) FROM counters GROUP BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scan total: %w", err)
		}
		totals[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate totals: %w", err)
	}

	return totals, nil
}

// RecentDays returns per-day counters for the most recent n days with any
// data, newest first.
func (s *counterStore) RecentDays(ctx context.Context, n int) ([]stats.DayCounters, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, name, value FROM counters
		WHERE day IN (SELECT DISTINCT day FROM counters ORDER BY day DESC LIMIT ?)
		ORDER BY day DESC, name`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read recent days: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []stats.DayCounters
	for rows.Next() {
		var day, name string
		var value int64
		if err := rows.Scan(&day, &name, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scan counter: %w", err)
		}

		if len(result) == 0 || result[len(result)-1].Day != day {
			result = append(result, stats.DayCounters{
				Day:      day,
				Counters: make(map[string]int64),
			})
		}
		result[len(result)-1].Counters[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate recent days: %w", err)
	}

	return result, nil
}

// PruneBefore deletes counters for days strictly before cutoff and returns
// the number of rows removed.
func (s *counterStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM counters WHERE day < ?", stats.Day(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune counters: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}
