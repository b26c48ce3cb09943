// internal/storage/facet.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// facetTopValues caps the frequency list of a text facet.
const facetTopValues = 50

// Facets computes one summary per requested column, keyed by column
// name. Column types without a facet shape are skipped, not errors.
// Columns run concurrently; each facet is a handful of cheap aggregate
// queries against the physical table.
func (s *Store) Facets(ctx context.Context, schema *domain.TableSchema, columns []string) (map[string]any, error) {
	if len(columns) == 0 {
		for i := range schema.Columns {
			columns = append(columns, schema.Columns[i].Name)
		}
	}

	table := PhysicalTable(schema.WorkspaceID, schema.Slug)
	facets := make(map[string]any, len(columns))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, name := range columns {
		col := schema.Column(name)
		if col == nil {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}

		wg.Add(1)
		go func(col *domain.ColumnDefinition) {
			defer wg.Done()
			facet, err := s.columnFacet(ctx, table, schema.WorkspaceID, col)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if facet != nil {
				facets[col.Name] = facet
			}
		}(col)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return facets, nil
}

func (s *Store) columnFacet(ctx context.Context, table string, workspaceID int64, col *domain.ColumnDefinition) (map[string]any, error) {
	switch {
	case col.IsRelation && col.RelationSetting != nil:
		return s.relationFacet(ctx, table, workspaceID, col)
	case col.DataType == core.TypeBoolean:
		return s.booleanFacet(ctx, table, col.Name)
	case core.IsNumericType(col.DataType):
		return s.numericFacet(ctx, table, col.Name)
	case core.IsDateType(col.DataType):
		return s.dateFacet(ctx, table, col.Name)
	case core.IsTextType(col.DataType):
		return s.textFacet(ctx, table, col.Name)
	default:
		// json, uuid and friends have no useful summary shape.
		return nil, nil
	}
}

// textFacet lists the most frequent values with their counts.
func (s *Store) textFacet(ctx context.Context, table, column string) (map[string]any, error) {
	stmt := fmt.Sprintf(`SELECT %s AS value, COUNT(*) AS n FROM %s WHERE %s IS NOT NULL GROUP BY %s ORDER BY n DESC, value ASC LIMIT %d`,
		column, table, column, column, facetTopValues)
	rows, err := QueryMaps(ctx, s.DB, stmt)
	if err != nil {
		return nil, fmt.Errorf("database error computing facet for %q: %w", column, err)
	}

	values := make([]string, 0, len(rows))
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		value := keyString(row["value"])
		values = append(values, value)
		counts[value] = asInt64(row["n"])
	}
	return map[string]any{"values": values, "count": counts}, nil
}

// relationFacet groups the local key values and joins the target
// table's display column, so a filter widget can show labels next to
// the raw foreign keys.
func (s *Store) relationFacet(ctx context.Context, table string, workspaceID int64, col *domain.ColumnDefinition) (map[string]any, error) {
	setting := col.RelationSetting
	if !core.IsValidSlug(setting.TargetTable) {
		return nil, fmt.Errorf("invalid relation target table %q on column %q", setting.TargetTable, col.Name)
	}
	targetKey := setting.TargetKey
	if targetKey == "" {
		targetKey = "id"
	}
	display := setting.DisplayColumn
	if display == "" {
		display = targetKey
	}
	if !core.IsValidIdentifier(targetKey) || !core.IsValidIdentifier(display) {
		return nil, fmt.Errorf("invalid relation setting on column %q", col.Name)
	}

	foreign := PhysicalTable(workspaceID, setting.TargetTable)
	stmt := fmt.Sprintf(`SELECT t.%s AS id, f.%s AS display, COUNT(*) AS n FROM %s t LEFT JOIN %s f ON f.%s = t.%s WHERE t.%s IS NOT NULL GROUP BY t.%s, f.%s ORDER BY n DESC, id ASC LIMIT %d`,
		col.Name, display, table, foreign, targetKey, col.Name, col.Name, col.Name, display, facetTopValues)
	rows, err := QueryMaps(ctx, s.DB, stmt)
	if err != nil {
		return nil, fmt.Errorf("database error computing facet for %q: %w", col.Name, err)
	}

	values := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, map[string]any{
			"id":      row["id"],
			"display": row["display"],
			"count":   asInt64(row["n"]),
		})
	}
	return map[string]any{"values": values}, nil
}

// numericFacet reports min, max, avg and non-null count.
func (s *Store) numericFacet(ctx context.Context, table, column string) (map[string]any, error) {
	stmt := fmt.Sprintf(`SELECT MIN(%s), MAX(%s), AVG(%s), COUNT(%s) FROM %s`,
		column, column, column, column, table)

	var min, max sql.NullFloat64
	var avg sql.NullFloat64
	var count int64
	if err := s.DB.QueryRowContext(ctx, stmt).Scan(&min, &max, &avg, &count); err != nil {
		return nil, fmt.Errorf("database error computing facet for %q: %w", column, err)
	}

	facet := map[string]any{"count": count}
	facet["min"] = nullableFloat(min)
	facet["max"] = nullableFloat(max)
	facet["avg"] = nullableFloat(avg)
	return facet, nil
}

// booleanFacet counts true, false and null rows.
func (s *Store) booleanFacet(ctx context.Context, table, column string) (map[string]any, error) {
	stmt := fmt.Sprintf(`SELECT
		COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN NOT %s THEN 1 ELSE 0 END), 0),
		COUNT(*) - COUNT(%s)
		FROM %s`, column, column, column, table)

	var trueCount, falseCount, nullCount int64
	if err := s.DB.QueryRowContext(ctx, stmt).Scan(&trueCount, &falseCount, &nullCount); err != nil {
		return nil, fmt.Errorf("database error computing facet for %q: %w", column, err)
	}
	return map[string]any{
		"true_count":  trueCount,
		"false_count": falseCount,
		"null_count":  nullCount,
	}, nil
}

// dateFacet reports the temporal range.
func (s *Store) dateFacet(ctx context.Context, table, column string) (map[string]any, error) {
	stmt := fmt.Sprintf(`SELECT MIN(%s), MAX(%s) FROM %s`, column, column, table)

	var min, max sql.NullString
	if err := s.DB.QueryRowContext(ctx, stmt).Scan(&min, &max); err != nil {
		return nil, fmt.Errorf("database error computing facet for %q: %w", column, err)
	}

	facet := map[string]any{}
	if min.Valid {
		facet["min_date"] = min.String
	} else {
		facet["min_date"] = nil
	}
	if max.Valid {
		facet["max_date"] = max.String
	} else {
		facet["max_date"] = nil
	}
	return facet, nil
}

func nullableFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
