// Package database implements the project, feedback and snapshot stores on
// PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite) through sqlx.
//
// Queries are written with ? placeholders and rebound for the driver.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jonesrussell/feedback-api/internal/config"
)

// DefaultPingTimeout bounds the connection check in Open.
const DefaultPingTimeout = 5 * time.Second

// pqUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

//go:embed schema_sqlite.sql
var sqliteSchema string

func init() {
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Open connects to the configured database and verifies the connection.
// SQLite databases get the schema applied; PostgreSQL is migrated
// separately with cmd/migrate.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(config.DriverPostgres, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database at path and applies the
// schema. Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open(config.DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection: SQLite allows a single writer, and every connection
	// to ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if err := ApplySQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// ApplySQLiteSchema creates the tables if they do not exist.
func ApplySQLiteSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply sqlite schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// withTx runs fn in a transaction, committing when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// now is the arrival time recorded on writes.
func now() time.Time {
	return time.Now().UTC()
}
