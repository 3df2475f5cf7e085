package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dataDirMode  = 0750
	dataFileMode = 0600

	// openTimeout bounds the connectivity check in Open.
	openTimeout = 5 * time.Second

	idleConnLifetime = 30 * time.Minute
)

// DB wraps the SQLite handle used by every store in the application.
// The pool is pinned to a single connection: SQLite allows one writer,
// and a single conn also keeps per-connection pragmas in force.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of the YAML config file.
type Config struct {
	// Path to the SQLite file. Parent directories are created on Open.
	Path string

	// WALMode switches the journal to write-ahead logging, which lets
	// reads proceed during a write.
	WALMode bool

	// BusyTimeout, in seconds, is how long a statement waits on a locked
	// database before failing.
	BusyTimeout int
}

// Open connects to the SQLite file at cfg.Path, creating the file and
// its directory as needed, and verifies the connection before
// returning. Foreign keys are always on; the file is chmodded to
// owner-only.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dataDirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleConnLifetime)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file may not exist until the first write; ignore the error then.
	_ = os.Chmod(cfg.Path, dataFileMode) //nolint:errcheck

	return db, nil
}

// Close releases the underlying handle. Safe to call on a DB whose
// handle is already gone.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the database answers.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats exposes the connection pool statistics for diagnostics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext runs a statement that returns no rows, wrapping any error
// with context.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// QueryRowContext runs a single-row query. Errors surface on Scan.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// BeginTx opens a transaction. Callers should defer a Rollback, which
// is a no-op once the transaction commits.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
