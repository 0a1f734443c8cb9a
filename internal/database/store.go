package database

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"weatherpipe/internal/models"
)

// Store persists validated weather tables idempotently.
type Store struct {
	driver string
	logger *slog.Logger
}

// NewStore creates a store for the given database/sql driver.
func NewStore(driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{driver: driver, logger: logger}
}

// Persist writes table to destination and returns the number of rows that
// were newly added. Rows whose timestamp is already stored are skipped, so
// persisting the same table twice adds nothing the second time.
//
// An empty table returns 0 without creating the destination or opening a
// connection. The connection is closed before Persist returns.
func (s *Store) Persist(ctx context.Context, table models.WeatherTable, destination string) (int, error) {
	s.logger.Info("Starting storage", "destination", redact(destination), "rows", len(table))

	if len(table) == 0 {
		s.logger.Warn("No rows to store, skipping storage")
		return 0, nil
	}

	d, err := dialectFor(s.driver)
	if err != nil {
		return 0, storageError("open", err)
	}

	if d.localFile {
		if err := ensureParentDir(destination); err != nil {
			return 0, storageError("mkdir", err)
		}
	}

	db, err := NewDB(ctx, s.driver, destination)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	inserted, err := db.InsertRecords(ctx, table)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Finished storage", "inserted", inserted, "ignored", len(table)-inserted)
	return inserted, nil
}

func ensureParentDir(path string) error {
	path = strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// redact hides the password of a MySQL DSN for logging.
func redact(dsn string) string {
	at := strings.LastIndexByte(dsn, '@')
	if at < 0 {
		return dsn
	}
	creds := dsn[:at]
	if colon := strings.IndexByte(creds, ':'); colon >= 0 {
		return creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
