// internal/storage/database.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/dialect"
	"github.com/quasarhq/quasar-backend/internal/logger"
)

var customLog = logger.NewLogger()

// Store bundles the connection pool with the engine dialect picked from
// the DSN. Every repo function hangs off it.
type Store struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

// Executor is the slice of database/sql that the query pipeline needs;
// both *sql.DB and *sql.Tx satisfy it, so compiled queries run the same
// inside and outside a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connect opens the backing store and ensures the system tables exist.
// The driver and dialect are picked from the DSN scheme: postgres://
// selects pgx, anything else is treated as a SQLite path.
func Connect(cfg *config.Config) (*Store, error) {
	d := dialect.ForDSN(cfg.DatabaseURL)

	dsn := cfg.DatabaseURL
	if d.Name() == "sqlite" && !strings.Contains(dsn, "?") {
		// Foreign keys plus WAL for better concurrency on the file store.
		dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	}

	customLog.Printf("Storage: connecting (%s)", d.Name())
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{DB: db, Dialect: d}
	if err := store.ensureSystemTables(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	customLog.Println("Storage: connection ready, system tables ensured.")
	return store, nil
}

// NewStore wraps an existing pool, used by tests.
func NewStore(db *sql.DB, d dialect.Dialect) *Store {
	return &Store{DB: db, Dialect: d}
}

// EnsureSystemTables bootstraps the metadata catalog.
func (s *Store) EnsureSystemTables(ctx context.Context) error {
	return s.ensureSystemTables(ctx)
}

func (s *Store) ensureSystemTables(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.Dialect.Name() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	now := s.Dialect.CurrentTimestamp()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_users (
			id %s,
			user_id TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT %s
		);`, serial, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_workspaces (
			id %s,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT %s
		);`, serial, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_members (
			id %s,
			workspace_id BIGINT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT %s,
			UNIQUE (workspace_id, user_id)
		);`, serial, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_api_keys (
			id %s,
			key TEXT UNIQUE NOT NULL,
			workspace_id BIGINT NOT NULL,
			owner_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT %s,
			UNIQUE (workspace_id)
		);`, serial, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_table_schemas (
			id %s,
			workspace_id BIGINT NOT NULL,
			slug TEXT NOT NULL,
			label TEXT NOT NULL,
			description TEXT,
			columns TEXT NOT NULL,
			is_system BOOLEAN NOT NULL DEFAULT FALSE,
			has_relation BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT %s,
			updated_at TIMESTAMP NOT NULL DEFAULT %s,
			UNIQUE (workspace_id, slug)
		);`, serial, now, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qs_schema_migrations (
			id %s,
			workspace_id BIGINT NOT NULL,
			table_slug TEXT NOT NULL,
			version BIGINT NOT NULL,
			statements TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT %s,
			UNIQUE (workspace_id, table_slug, version)
		);`, serial, now),
	}

	for _, stmt := range statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			customLog.Warnf("Storage: failed bootstrapping system tables: %v", err)
			return fmt.Errorf("failed to ensure system tables: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside one transaction: every statement issued through
// the passed executor commits or rolls back together.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			customLog.Warnf("Storage: rollback failed after error: %v (original: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PhysicalTable is the physical name of a workspace's dynamic table.
// The workspace id prefix keeps tenants apart on every engine.
func PhysicalTable(workspaceID int64, slug string) string {
	return fmt.Sprintf("ws_%d_%s", workspaceID, slug)
}

// Placeholders renders n dialect placeholders starting at offset+1.
func (s *Store) Placeholders(offset, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = s.Dialect.Placeholder(offset + i + 1)
	}
	return out
}
