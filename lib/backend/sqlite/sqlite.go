// Package sqlite implements an external store in a SQLite database file.
//
// Every repository is one row of the table "repositories". The handle column
// holds repository.Handle.Key, so the string handle "42" and the numeric
// handle 42 are different rows.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/pRepo/lib/backend"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/lni/dragonboat/v4/logger"
	_ "github.com/mattn/go-sqlite3"
)

var log = logger.GetLogger("backend")

const (
	dirPermissions    = 0750
	filePermissions   = 0600
	connectionTimeout = 5 * time.Second
	connMaxIdleTime   = 30 * time.Minute
)

const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	handle     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Config configures Open.
type Config struct {
	// Path of the database file. The directory is created if missing.
	Path string
	// BusyTimeout is how long a statement waits for a locked database.
	BusyTimeout time.Duration
	// WALMode enables write-ahead logging.
	WALMode bool
	// CreateMissing makes Fetch return an empty repository for unknown handles.
	CreateMissing bool
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		WALMode:     true,
	}
}

// Backend is a repository.IBackend on top of SQLite.
type Backend struct {
	db            *sql.DB
	path          string
	createMissing bool
}

// Open opens (and if needed creates) the database and its schema.
func Open(cfg Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}
	_ = os.Chmod(cfg.Path, filePermissions)

	log.Infof("opened sqlite store %s (wal=%v)", cfg.Path, cfg.WALMode)
	return &Backend{db: db, path: cfg.Path, createMissing: cfg.CreateMissing}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see repository.IBackend)
// --------------------------------------------------------------------------

func (b *Backend) Fetch(ctx context.Context, handle repository.Handle) (path.Values, error) {
	var raw string
	err := b.db.QueryRowContext(ctx,
		`SELECT data FROM repositories WHERE handle = ?`, handle.Key(),
	).Scan(&raw)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if b.createMissing {
			return path.Values{}, nil
		}
		return nil, backend.UnknownHandle(handle)
	case err != nil:
		return nil, fmt.Errorf("sqlite: fetching %s: %w", handle, err)
	}
	return backend.Unmarshal([]byte(raw))
}

func (b *Backend) Write(ctx context.Context, handle repository.Handle, data path.Values) error {
	raw, err := backend.Marshal(data)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO repositories (handle, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		handle.Key(), string(raw), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", handle, err)
	}
	log.Debugf("stored %d bytes for handle %s", len(raw), handle)
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Handles returns all stored handles ordered by key.
func (b *Backend) Handles(ctx context.Context) ([]repository.Handle, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT handle FROM repositories ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing handles: %w", err)
	}
	defer rows.Close()

	var out []repository.Handle
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		h, err := repository.HandleFromKey(key)
		if err != nil {
			log.Warningf("skipping row with %v", err)
			continue
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete removes the record of handle. Deleting an unknown handle is not an error.
func (b *Backend) Delete(ctx context.Context, handle repository.Handle) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM repositories WHERE handle = ?`, handle.Key()); err != nil {
		return fmt.Errorf("sqlite: deleting %s: %w", handle, err)
	}
	return nil
}

// HealthCheck pings the database.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Path returns the database file.
func (b *Backend) Path() string {
	return b.path
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("sqlite: closing database: %w", err)
	}
	return nil
}
