// internal/storage/schema_repo.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Schema catalog errors
var (
	// ErrSchemaNotFound covers both a truly missing table and a caller
	// without view permission; the two are deliberately indistinguishable.
	ErrSchemaNotFound = errors.New("table not found")
	ErrSchemaExists   = errors.New("table slug already exists in this workspace")
)

// GetSchema retrieves a table schema by workspace and slug, without any
// permission check. Internal callers only.
func (s *Store) GetSchema(ctx context.Context, workspaceID int64, slug string) (*domain.TableSchema, error) {
	stmt := fmt.Sprintf(`SELECT id, workspace_id, slug, label, description, columns, is_system, has_relation, created_at, updated_at
		FROM qs_table_schemas WHERE workspace_id = %s AND slug = %s LIMIT 1`,
		s.Dialect.Placeholder(1), s.Dialect.Placeholder(2))
	return s.scanSchema(s.DB.QueryRowContext(ctx, stmt, workspaceID, slug))
}

// GetSchemaForUser is the collaborator contract of the query pipeline:
// it returns ErrSchemaNotFound both when the slug does not exist and
// when the caller has no membership granting view access.
func (s *Store) GetSchemaForUser(ctx context.Context, workspaceID int64, slug, userID string) (*domain.TableSchema, error) {
	role, err := s.MemberRole(ctx, workspaceID, userID)
	if err != nil || role == "" {
		if err != nil {
			customLog.Warnf("Storage: membership lookup failed for user %s: %v", userID, err)
		}
		return nil, ErrSchemaNotFound
	}
	return s.GetSchema(ctx, workspaceID, slug)
}

// ListSchemas returns every table schema of a workspace.
func (s *Store) ListSchemas(ctx context.Context, workspaceID int64) ([]domain.TableSchema, error) {
	stmt := fmt.Sprintf(`SELECT id, workspace_id, slug, label, description, columns, is_system, has_relation, created_at, updated_at
		FROM qs_table_schemas WHERE workspace_id = %s ORDER BY slug`, s.Dialect.Placeholder(1))
	rows, err := s.DB.QueryContext(ctx, stmt, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("database error listing schemas: %w", err)
	}
	defer rows.Close()

	schemas := make([]domain.TableSchema, 0)
	for rows.Next() {
		schema, err := s.scanSchemaRows(rows)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading schema list: %w", err)
	}
	return schemas, nil
}

// CreateSchema persists the catalog row, synthesizes the physical table
// and writes the migration-log entry, all in one transaction: any
// failure leaves neither the row nor the table behind.
func (s *Store) CreateSchema(ctx context.Context, workspaceID int64, slug, label, description string, cols []domain.ColumnDefinition) (*domain.TableSchema, error) {
	table := PhysicalTable(workspaceID, slug)
	statements, err := core.CreateTableSQL(s.Dialect, table, cols)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(cols)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column definitions: %w", err)
	}
	hasRelation := anyRelation(cols)

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		insert := fmt.Sprintf(`INSERT INTO qs_table_schemas (workspace_id, slug, label, description, columns, has_relation) VALUES (%s)`,
			strings.Join(s.Placeholders(0, 6), ", "))
		if _, err := tx.ExecContext(ctx, insert, workspaceID, slug, label, description, string(encoded), hasRelation); err != nil {
			if isUniqueViolation(err) {
				return ErrSchemaExists
			}
			return fmt.Errorf("database error persisting schema: %w", err)
		}

		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				customLog.Warnf("Storage: CREATE failed for table %s: %v\nSQL: %s", table, err, stmt)
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		return s.logMigration(ctx, tx, workspaceID, slug, statements)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(ctx, workspaceID, slug)
}

// AlterSchema diffs the stored column list against the new one and
// applies catalog update plus physical alterations atomically.
func (s *Store) AlterSchema(ctx context.Context, schema *domain.TableSchema, newCols []domain.ColumnDefinition) (*domain.TableSchema, error) {
	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	statements, err := core.AlterTableSQL(s.Dialect, table, schema.Columns, newCols)
	if err != nil {
		return nil, err
	}

	// Retypes outside the migration targets were skipped by the
	// synthesizer; the catalog must keep the old type for those columns
	// so it stays truthful about the physical table.
	persisted := reconcileColumns(schema.Columns, newCols, s.Dialect.SupportsRetype())
	encoded, err := json.Marshal(persisted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column definitions: %w", err)
	}

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				customLog.Warnf("Storage: ALTER failed for table %s: %v\nSQL: %s", table, err, stmt)
				return fmt.Errorf("failed to alter table: %w", err)
			}
		}

		update := fmt.Sprintf(`UPDATE qs_table_schemas SET columns = %s, has_relation = %s, updated_at = %s WHERE id = %s`,
			s.Dialect.Placeholder(1), s.Dialect.Placeholder(2), s.Dialect.CurrentTimestamp(), s.Dialect.Placeholder(3))
		if _, err := tx.ExecContext(ctx, update, string(encoded), anyRelation(persisted), schema.ID); err != nil {
			return fmt.Errorf("database error updating schema: %w", err)
		}

		if len(statements) == 0 {
			return nil // no-op diff: zero ALTERs, no migration entry
		}
		return s.logMigration(ctx, tx, schema.WorkspaceID, schema.Slug, statements)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(ctx, schema.WorkspaceID, schema.Slug)
}

// DeleteSchema drops the catalog row and the physical table in one
// transaction.
func (s *Store) DeleteSchema(ctx context.Context, schema *domain.TableSchema) error {
	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	statements := core.DropTableSQL(s.Dialect, table)

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		del := fmt.Sprintf(`DELETE FROM qs_table_schemas WHERE id = %s`, s.Dialect.Placeholder(1))
		if _, err := tx.ExecContext(ctx, del, schema.ID); err != nil {
			return fmt.Errorf("database error deleting schema: %w", err)
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				customLog.Warnf("Storage: DROP failed for table %s: %v\nSQL: %s", table, err, stmt)
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
		return s.logMigration(ctx, tx, schema.WorkspaceID, schema.Slug, statements)
	})
}

// logMigration appends a versioned entry to the migration log inside the
// caller's transaction, keyed by (workspace, table).
func (s *Store) logMigration(ctx context.Context, tx *sql.Tx, workspaceID int64, slug string, statements []string) error {
	var version int64
	next := fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) + 1 FROM qs_schema_migrations WHERE workspace_id = %s AND table_slug = %s`,
		s.Dialect.Placeholder(1), s.Dialect.Placeholder(2))
	if err := tx.QueryRowContext(ctx, next, workspaceID, slug).Scan(&version); err != nil {
		return fmt.Errorf("database error reading migration version: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO qs_schema_migrations (workspace_id, table_slug, version, statements) VALUES (%s)`,
		strings.Join(s.Placeholders(0, 4), ", "))
	if _, err := tx.ExecContext(ctx, insert, workspaceID, slug, version, strings.Join(statements, "\n")); err != nil {
		return fmt.Errorf("database error writing migration log: %w", err)
	}
	return nil
}

// Migration is one applied entry of a table's migration log.
type Migration struct {
	Version    int64     `json:"version"`
	Statements string    `json:"statements"`
	AppliedAt  time.Time `json:"applied_at"`
}

// ListMigrations returns a table's migration log, newest first.
func (s *Store) ListMigrations(ctx context.Context, workspaceID int64, slug string) ([]Migration, error) {
	stmt := fmt.Sprintf(`SELECT version, statements, applied_at FROM qs_schema_migrations
		WHERE workspace_id = %s AND table_slug = %s ORDER BY version DESC`,
		s.Dialect.Placeholder(1), s.Dialect.Placeholder(2))
	rows, err := s.DB.QueryContext(ctx, stmt, workspaceID, slug)
	if err != nil {
		return nil, fmt.Errorf("database error listing migrations: %w", err)
	}
	defer rows.Close()

	migrations := make([]Migration, 0)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Statements, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed reading migration log: %w", err)
		}
		migrations = append(migrations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading migration log: %w", err)
	}
	return migrations, nil
}

func (s *Store) scanSchema(row *sql.Row) (*domain.TableSchema, error) {
	var schema domain.TableSchema
	var encoded string
	err := row.Scan(&schema.ID, &schema.WorkspaceID, &schema.Slug, &schema.Label, &schema.Description,
		&encoded, &schema.IsSystem, &schema.HasRelation, &schema.CreatedAt, &schema.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSchemaNotFound
		}
		return nil, fmt.Errorf("database error reading schema: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &schema.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode column definitions for %s: %w", schema.Slug, err)
	}
	return &schema, nil
}

func (s *Store) scanSchemaRows(rows *sql.Rows) (*domain.TableSchema, error) {
	var schema domain.TableSchema
	var encoded string
	err := rows.Scan(&schema.ID, &schema.WorkspaceID, &schema.Slug, &schema.Label, &schema.Description,
		&encoded, &schema.IsSystem, &schema.HasRelation, &schema.CreatedAt, &schema.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("database error reading schema: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &schema.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode column definitions for %s: %w", schema.Slug, err)
	}
	return &schema, nil
}

func anyRelation(cols []domain.ColumnDefinition) bool {
	for i := range cols {
		if cols[i].IsRelation {
			return true
		}
	}
	return false
}

// reconcileColumns keeps the old data type for retype requests the
// synthesizer skipped, so the catalog matches the physical table.
func reconcileColumns(oldCols, newCols []domain.ColumnDefinition, supportsRetype bool) []domain.ColumnDefinition {
	oldByName := make(map[string]*domain.ColumnDefinition, len(oldCols))
	for i := range oldCols {
		oldByName[strings.ToLower(oldCols[i].Name)] = &oldCols[i]
	}

	out := make([]domain.ColumnDefinition, len(newCols))
	copy(out, newCols)
	for i := range out {
		oldCol, ok := oldByName[strings.ToLower(out[i].Name)]
		if !ok || oldCol.DataType == out[i].DataType {
			continue
		}
		if !core.CanMigrate(oldCol.DataType, out[i].DataType) || !supportsRetype {
			out[i].DataType = oldCol.DataType
			out[i].DataTypeOptions = oldCol.DataTypeOptions
		}
	}
	return out
}
