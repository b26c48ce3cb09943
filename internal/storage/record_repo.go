// internal/storage/record_repo.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Record errors
var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrColumnNotFound      = errors.New("column not found")
	ErrMissingRequired     = errors.New("required field missing")
	ErrConstraintViolation = errors.New("constraint violation")
)

// BatchFailure reports one rejected item of a batch insert.
type BatchFailure struct {
	Index int            `json:"index"`
	Input map[string]any `json:"input"`
	Error string         `json:"error"`
}

// InsertRecord validates and inserts one record, returning the new id.
// Every value is coerced through the column's declared type first.
func (s *Store) InsertRecord(ctx context.Context, schema *domain.TableSchema, data map[string]any, createdBy string) (string, error) {
	columns := []string{"id", "created_by"}
	values := []any{uuid.NewString(), createdBy}

	for i := range schema.Columns {
		col := &schema.Columns[i]
		raw, present := data[col.Name]
		if !present {
			if !col.Nullable && col.Default == nil {
				return "", fmt.Errorf("%w: column %q", ErrMissingRequired, col.Name)
			}
			continue
		}
		value, err := core.CoerceValue(col, raw)
		if err != nil {
			return "", err
		}
		columns = append(columns, col.Name)
		values = append(values, value)
	}

	// Reject keys that are not declared columns instead of silently
	// dropping them.
	for key := range data {
		if core.IsSystemColumn(key) {
			continue
		}
		if schema.Column(key) == nil {
			return "", fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
	}

	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(s.Placeholders(0, len(values)), ", "))

	if _, err := s.DB.ExecContext(ctx, stmt, values...); err != nil {
		if isUniqueViolation(err) {
			return "", ErrConstraintViolation
		}
		customLog.Warnf("Storage: INSERT failed for %s: %v", table, err)
		return "", fmt.Errorf("database error during insert: %w", err)
	}
	return values[0].(string), nil
}

// BatchInsert inserts items one at a time: a malformed item is reported
// with its index and input while every valid item still commits. The
// batch is partial-failure-tolerant by design, not atomic.
func (s *Store) BatchInsert(ctx context.Context, schema *domain.TableSchema, items []map[string]any, createdBy string) ([]string, []BatchFailure) {
	ids := make([]string, 0, len(items))
	failures := make([]BatchFailure, 0)

	for i, item := range items {
		id, err := s.InsertRecord(ctx, schema, item, createdBy)
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, Input: item, Error: err.Error()})
			continue
		}
		ids = append(ids, id)
	}
	return ids, failures
}

// GetRecord retrieves one record by id.
func (s *Store) GetRecord(ctx context.Context, schema *domain.TableSchema, id string) (map[string]any, error) {
	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE id = %s LIMIT 1", table, s.Dialect.Placeholder(1))

	records, err := QueryMaps(ctx, s.DB, stmt, id)
	if err != nil {
		return nil, fmt.Errorf("database error getting record: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// UpdateRecord validates and applies a partial update. updated_at is
// refreshed by the table's trigger, not here.
func (s *Store) UpdateRecord(ctx context.Context, schema *domain.TableSchema, id string, data map[string]any) error {
	var setClauses []string
	var values []any

	for i := range schema.Columns {
		col := &schema.Columns[i]
		raw, present := data[col.Name]
		if !present {
			continue
		}
		value, err := core.CoerceValue(col, raw)
		if err != nil {
			return err
		}
		values = append(values, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", col.Name, s.Dialect.Placeholder(len(values))))
	}
	for key := range data {
		if core.IsSystemColumn(key) {
			return fmt.Errorf("%w: %q is read-only", ErrColumnNotFound, key)
		}
		if schema.Column(key) == nil {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
	}
	if len(setClauses) == 0 {
		return errors.New("no valid fields provided for update")
	}

	values = append(values, id)
	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		table, strings.Join(setClauses, ", "), s.Dialect.Placeholder(len(values)))

	result, err := s.DB.ExecContext(ctx, stmt, values...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConstraintViolation
		}
		customLog.Warnf("Storage: UPDATE failed for %s: %v", table, err)
		return fmt.Errorf("database error during update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming update: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteRecord removes one record by id.
func (s *Store) DeleteRecord(ctx context.Context, schema *domain.TableSchema, id string) error {
	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, s.Dialect.Placeholder(1))

	result, err := s.DB.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("database error during delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming delete: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// RunQuery executes a compiled query pair and returns the page plus the
// filtered total.
func (s *Store) RunQuery(ctx context.Context, compiled *core.CompiledQuery) ([]map[string]any, int64, error) {
	records, err := QueryMaps(ctx, s.DB, compiled.SQL, compiled.Args...)
	if err != nil {
		customLog.Warnf("Storage: compiled SELECT failed: %v\nSQL: %s", err, compiled.SQL)
		return nil, 0, fmt.Errorf("database error listing records: %w", err)
	}

	var total int64
	if err := s.DB.QueryRowContext(ctx, compiled.CountSQL, compiled.CountArgs...).Scan(&total); err != nil {
		customLog.Warnf("Storage: compiled COUNT failed: %v\nSQL: %s", err, compiled.CountSQL)
		return nil, 0, fmt.Errorf("database error counting records: %w", err)
	}
	return records, total, nil
}

// QueryMaps runs a query and scans every row into a map, converting
// byte slices to strings so they serialize as text.
func QueryMaps(ctx context.Context, exec Executor, query string, args ...any) ([]map[string]any, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed processing results: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed reading record data: %w", err)
		}

		rowData := make(map[string]any, len(columns))
		for i, name := range columns {
			if byteSlice, ok := values[i].([]byte); ok {
				rowData[name] = string(byteSlice)
			} else {
				rowData[name] = values[i]
			}
		}
		results = append(results, rowData)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing all records: %w", err)
	}
	return results, nil
}
