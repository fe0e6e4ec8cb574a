// Package tscache persists resolved capture timestamps in SQLite so large
// batches do not re-probe unchanged files on every run.
//
// Entries are keyed by path, size, and modification time; any change to the
// file invalidates its entry. The cache is best effort: lookup misses and
// store failures must never abort an assembly.
package tscache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages the capture-timestamp database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS capture_times (
	path TEXT NOT NULL,
	size INTEGER NOT NULL,
	mtime_unix INTEGER NOT NULL,
	capture_unix INTEGER NOT NULL,
	PRIMARY KEY (path, size, mtime_unix)
);
`

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the cache database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("tscache: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the cached capture time for the file identified by path,
// size, and mtime. The second result reports whether an entry was found.
func (s *Store) Lookup(ctx context.Context, path string, size int64, mtime time.Time) (time.Time, bool, error) {
	var captureUnix int64
	err := s.queryRowRetry(ctx,
		`SELECT capture_unix FROM capture_times WHERE path = ? AND size = ? AND mtime_unix = ?`,
		&captureUnix, path, size, mtime.Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup %s: %w", path, err)
	}
	return time.Unix(captureUnix, 0), true, nil
}

// Put records the capture time for a file, replacing any stale entry for the
// same path.
func (s *Store) Put(ctx context.Context, path string, size int64, mtime, capture time.Time) error {
	if err := s.execRetry(ctx, `DELETE FROM capture_times WHERE path = ?`, path); err != nil {
		return fmt.Errorf("evict %s: %w", path, err)
	}
	err := s.execRetry(ctx,
		`INSERT INTO capture_times (path, size, mtime_unix, capture_unix) VALUES (?, ?, ?, ?)`,
		path, size, mtime.Unix(), capture.Unix())
	if err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	return nil
}

// Prune drops entries whose files no longer exist.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT path FROM capture_times`)
	if err != nil {
		return 0, fmt.Errorf("list cached paths: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var removed int64
	for _, path := range stale {
		res, err := s.db.ExecContext(ctx, `DELETE FROM capture_times WHERE path = ?`, path)
		if err != nil {
			return removed, err
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}
	return removed, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) queryRowRetry(ctx context.Context, query string, dest *int64, args ...any) error {
	return retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(dest)
	})
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
