package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"diagramgen/metrics"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Repository reads and writes the runs table.
type Repository struct {
	db *Database
}

// NewRepository wraps an open Database.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// InsertRun stores a finished run. Re-recording an ID replaces the row.
func (r *Repository) InsertRun(ctx context.Context, run metrics.RunRecord) error {
	conn, err := r.db.conn()
	if err != nil {
		return err
	}

	var ended sql.NullString
	if !run.EndTime.IsZero() {
		ended = sql.NullString{String: formatTime(run.EndTime), Valid: true}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, brief, slide_format, status, rounds_taken, approved,
			image_url, error_message, started_at, ended_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Brief,
		run.SlideFormat,
		run.Status,
		run.RoundsTaken,
		run.Approved,
		run.ImageURL,
		run.ErrorMsg,
		formatTime(run.StartTime),
		ended,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("db: failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, oldest first, matching
// metrics.RunCollector ordering.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]metrics.RunRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []metrics.RunRecord{}, nil
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT id, brief, slide_format, status, rounds_taken, approved,
		       COALESCE(image_url, ''), COALESCE(error_message, ''),
		       started_at, COALESCE(ended_at, ''), duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []metrics.RunRecord
	for rows.Next() {
		var (
			run              metrics.RunRecord
			started, ended   string
			durationMillisec int64
		)
		if err := rows.Scan(
			&run.ID,
			&run.Brief,
			&run.SlideFormat,
			&run.Status,
			&run.RoundsTaken,
			&run.Approved,
			&run.ImageURL,
			&run.ErrorMsg,
			&started,
			&ended,
			&durationMillisec,
		); err != nil {
			return nil, fmt.Errorf("db: failed to scan run: %w", err)
		}

		if run.StartTime, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("db: run %s has bad started_at %q: %w", run.ID, started, err)
		}
		if ended != "" {
			if run.EndTime, err = parseTime(ended); err != nil {
				return nil, fmt.Errorf("db: run %s has bad ended_at %q: %w", run.ID, ended, err)
			}
		}
		run.Duration = time.Duration(durationMillisec) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: failed to read runs: %w", err)
	}

	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

// CountRuns returns the number of stored runs.
func (r *Repository) CountRuns(ctx context.Context) (int64, error) {
	conn, err := r.db.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("db: failed to count runs: %w", err)
	}
	return n, nil
}
