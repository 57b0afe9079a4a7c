package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout     = 5 * time.Second
	connMaxIdleTime = 30 * time.Minute
	connMaxLifetime = time.Hour

	memoryPath = ":memory:"
)

// DB is the spool's SQLite handle.
type DB struct {
	*sql.DB
	path string
}

// Config maps the spool section of the config file.
type Config struct {
	// Path of the database file. Parent directories are created.
	// ":memory:" opens a private in-memory database.
	Path string

	// WALMode enables write-ahead logging with synchronous=NORMAL.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database, in seconds.
	BusyTimeout int
}

func (c Config) inMemory() bool {
	return c.Path == memoryPath
}

// dsn builds a go-sqlite3 connection string.
// See https://github.com/mattn/go-sqlite3#connection-string.
func (c Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout*int(time.Second/time.Millisecond)))
	q.Set("_foreign_keys", "on")
	if c.WALMode && !c.inMemory() {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// Open opens (creating if needed) the SQLite file and verifies it with a
// ping. The pool is limited to one connection: SQLite has a single writer,
// and an in-memory database lives only as long as its connection.
//
// Parameters:
//   - ctx: Bounds the connectivity check
//   - cfg: Path and pragmas
//
// Returns:
//   - *DB: Open database
//   - error: If the directory, file or ping fails
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if !cfg.inMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if cfg.inMemory() {
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !cfg.inMemory() {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // best effort
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close closes the database. Safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("spool database health check: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
