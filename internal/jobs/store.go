package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dengbej/internal/config"
)

// Store persists the job ledger in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Writers retry briefly when another process (the CLI sweep, a second
// reader) holds the write lock past busy_timeout.
const (
	busyAttempts = 5
	busyBackoff  = 10 * time.Millisecond
	busyCeiling  = 200 * time.Millisecond
)

// connectionPragmas are applied to every pooled connection through the DSN.
var connectionPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		// SQLITE_BUSY and SQLITE_LOCKED, including extended codes.
		switch coded.Code() & 0xff {
		case 5, 6:
			return true
		}
	}
	return strings.Contains(err.Error(), "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	wait := busyBackoff
	for attempt := 1; ; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil || !isBusy(err) || attempt == busyAttempts {
			return res, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, busyCeiling)
	}
}

// Open initializes or connects to the job ledger under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JobsDBPath())
}

// OpenPath opens the ledger at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open job ledger %s: %w", dbPath, err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(path string) string {
	query := url.Values{}
	for _, pragma := range connectionPragmas {
		query.Add("_pragma", pragma)
	}
	return "file:" + path + "?" + query.Encode()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
