package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Database owns the run history connection. Migrations run before the
// connection is handed out.
//
//	database, err := NewDatabase("output/history.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
type Database struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDatabase creates parent directories, migrates the schema and opens path.
func NewDatabase(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: failed to create directory %s: %w", dir, err)
		}
	}

	if err := MigrateUp(path); err != nil {
		return nil, err
	}

	conn, err := Open(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Database{db: conn, path: path}, nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// conn returns the open connection or an error after Close.
func (d *Database) conn() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, fmt.Errorf("db: database connection is closed")
	}
	return d.db, nil
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	conn, err := d.conn()
	if err != nil {
		return err
	}
	return conn.PingContext(ctx)
}

// Close closes the connection. Safe to call more than once.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("db: failed to close database: %w", err)
	}
	return nil
}

// CleanupResult reports a retention pass.
type CleanupResult struct {
	RunsDeleted int64
	Duration    time.Duration
}

// Cleanup deletes runs that started more than retentionDays ago and
// vacuums the file. retentionDays of zero keeps everything.
func (d *Database) Cleanup(ctx context.Context, retentionDays int) (CleanupResult, error) {
	start := time.Now()
	var result CleanupResult

	if retentionDays < 0 {
		return result, fmt.Errorf("db: retentionDays must be non-negative, got %d", retentionDays)
	}
	if retentionDays == 0 {
		return result, nil
	}

	conn, err := d.conn()
	if err != nil {
		return result, err
	}

	cutoff := formatTime(time.Now().AddDate(0, 0, -retentionDays))
	res, err := conn.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return result, fmt.Errorf("db: failed to delete expired runs: %w", err)
	}
	result.RunsDeleted, _ = res.RowsAffected()

	if result.RunsDeleted > 0 {
		if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
			return result, fmt.Errorf("db: vacuum failed: %w", err)
		}
	}
	result.Duration = time.Since(start)
	return result, nil
}
