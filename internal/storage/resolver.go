// internal/storage/resolver.go
package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/quasarhq/quasar-backend/internal/core"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// relationLookupThreshold switches between the two fetch strategies:
// at or below it each key gets its own point lookup, above it the keys
// are fetched in chunked IN queries.
const (
	relationLookupThreshold = 8
	relationBatchSize       = 500
)

// resolvedColumn is one finished label ready to be attached to records.
type resolvedColumn struct {
	label    string
	localKey string
	values   map[string]any
	identity any
}

// ResolveRelations fetches the requested foreign display values and
// attaches them to each record under the spec's label. Specs run
// concurrently; attachment is serialized afterwards so the records are
// never written from two goroutines.
func (s *Store) ResolveRelations(ctx context.Context, workspaceID int64, records []map[string]any, specs []domain.RelationColumn) error {
	if len(records) == 0 || len(specs) == 0 {
		return nil
	}

	resolved := make([]resolvedColumn, 0, len(specs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for i := range specs {
		wg.Add(1)
		go func(spec *domain.RelationColumn) {
			defer wg.Done()
			rc, err := s.resolveRelation(ctx, workspaceID, records, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			resolved = append(resolved, *rc)
		}(&specs[i])
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	attach(records, resolved)
	return nil
}

func (s *Store) resolveRelation(ctx context.Context, workspaceID int64, records []map[string]any, spec *domain.RelationColumn) (*resolvedColumn, error) {
	if err := validateRelationSpec(spec.Label, spec.LocalKey, spec.ForeignTable, spec.ForeignKey); err != nil {
		return nil, err
	}
	displays := spec.DisplayColumns
	if len(displays) == 0 {
		displays = []string{"id"}
	}
	for _, d := range displays {
		if !core.IsValidIdentifier(d) {
			return nil, fmt.Errorf("invalid display column %q", d)
		}
	}

	foreignKey := spec.ForeignKey
	if foreignKey == "" {
		foreignKey = "id"
	}

	rc := &resolvedColumn{
		label:    spec.Label,
		localKey: spec.LocalKey,
		values:   make(map[string]any),
		identity: nil,
	}

	keys, raw := distinctKeys(records, spec.LocalKey)
	if len(keys) == 0 {
		return rc, nil
	}

	table := PhysicalTable(workspaceID, spec.ForeignTable)
	selectList := strings.Join(displays, ", ")

	if len(keys) <= relationLookupThreshold {
		// Point lookups: cheaper than an IN scan for a handful of keys.
		stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s LIMIT 1",
			foreignKey, selectList, table, foreignKey, s.Dialect.Placeholder(1))
		for i, key := range keys {
			rows, err := QueryMaps(ctx, s.DB, stmt, raw[i])
			if err != nil {
				return nil, fmt.Errorf("database error resolving relation %q: %w", spec.Label, err)
			}
			if len(rows) > 0 {
				rc.values[key] = pickDisplay(rows[0], displays)
			}
		}
		return rc, nil
	}

	for start := 0; start < len(raw); start += relationBatchSize {
		end := start + relationBatchSize
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[start:end]
		stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)",
			foreignKey, selectList, table, foreignKey,
			strings.Join(s.Placeholders(0, len(chunk)), ", "))
		rows, err := QueryMaps(ctx, s.DB, stmt, chunk...)
		if err != nil {
			return nil, fmt.Errorf("database error resolving relation %q: %w", spec.Label, err)
		}
		for _, row := range rows {
			rc.values[keyString(row[foreignKey])] = pickDisplay(row, displays)
		}
	}
	return rc, nil
}

// ResolveAggregates computes per-record aggregates over a foreign table
// and attaches them under each spec's label. Unmatched records get the
// function's identity value: 0 for count, null for everything else.
func (s *Store) ResolveAggregates(ctx context.Context, workspaceID int64, records []map[string]any, specs []domain.AggregateColumn) error {
	if len(records) == 0 || len(specs) == 0 {
		return nil
	}

	resolved := make([]resolvedColumn, 0, len(specs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for i := range specs {
		wg.Add(1)
		go func(spec *domain.AggregateColumn) {
			defer wg.Done()
			rc, err := s.resolveAggregate(ctx, workspaceID, records, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if rc != nil {
				resolved = append(resolved, *rc)
			}
		}(&specs[i])
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	attach(records, resolved)
	return nil
}

func (s *Store) resolveAggregate(ctx context.Context, workspaceID int64, records []map[string]any, spec *domain.AggregateColumn) (*resolvedColumn, error) {
	if err := validateRelationSpec(spec.Label, spec.LocalKey, spec.ForeignTable, spec.ForeignKey); err != nil {
		return nil, err
	}
	function := strings.ToLower(spec.Function)
	if !core.AllowedAggregateFunctions[function] {
		return nil, fmt.Errorf("unsupported aggregate function %q", spec.Function)
	}

	expr, skip, err := s.aggregateExpr(function, spec.FunctionField)
	if err != nil {
		return nil, err
	}
	if skip {
		customLog.Warnf("Storage: aggregate %q for label %q has no engine mapping, skipping", function, spec.Label)
		return nil, nil
	}

	foreignKey := spec.ForeignKey
	if foreignKey == "" {
		foreignKey = "id"
	}

	rc := &resolvedColumn{
		label:    spec.Label,
		localKey: spec.LocalKey,
		values:   make(map[string]any),
	}
	if function == "count" {
		rc.identity = int64(0)
	}

	keys, raw := distinctKeys(records, spec.LocalKey)
	if len(keys) == 0 {
		return rc, nil
	}

	table := PhysicalTable(workspaceID, spec.ForeignTable)

	groupBy := ""
	if spec.GroupBy != "" {
		if !core.IsValidIdentifier(spec.GroupBy) {
			return nil, fmt.Errorf("invalid group_by column %q", spec.GroupBy)
		}
		groupBy = spec.GroupBy
	}

	for start := 0; start < len(raw); start += relationBatchSize {
		end := start + relationBatchSize
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[start:end]

		var stmt string
		if groupBy == "" {
			stmt = fmt.Sprintf("SELECT %s AS fk, %s AS agg FROM %s WHERE %s IN (%s) GROUP BY %s",
				foreignKey, expr, table, foreignKey,
				strings.Join(s.Placeholders(0, len(chunk)), ", "), foreignKey)
		} else {
			stmt = fmt.Sprintf("SELECT %s AS fk, %s AS grp, %s AS agg FROM %s WHERE %s IN (%s) GROUP BY %s, %s",
				foreignKey, groupBy, expr, table, foreignKey,
				strings.Join(s.Placeholders(0, len(chunk)), ", "), foreignKey, groupBy)
		}

		rows, err := QueryMaps(ctx, s.DB, stmt, chunk...)
		if err != nil {
			return nil, fmt.Errorf("database error computing aggregate %q: %w", spec.Label, err)
		}
		for _, row := range rows {
			key := keyString(row["fk"])
			if groupBy == "" {
				rc.values[key] = row["agg"]
				continue
			}
			grouped, _ := rc.values[key].(map[string]any)
			if grouped == nil {
				grouped = make(map[string]any)
				rc.values[key] = grouped
			}
			grouped[keyString(row["grp"])] = row["agg"]
		}
	}
	return rc, nil
}

// aggregateExpr renders the SQL aggregate expression. skip is true when
// the function is accepted but has no rendering on this engine.
func (s *Store) aggregateExpr(function, field string) (expr string, skip bool, err error) {
	if function == "count" && field == "" {
		return "COUNT(*)", false, nil
	}
	if field == "" {
		return "", false, fmt.Errorf("aggregate %q requires a function field", function)
	}
	if !core.IsValidIdentifier(field) {
		return "", false, fmt.Errorf("invalid aggregate field %q", field)
	}

	switch function {
	case "count":
		return fmt.Sprintf("COUNT(%s)", field), false, nil
	case "sum", "avg", "min", "max":
		return fmt.Sprintf("%s(%s)", strings.ToUpper(function), field), false, nil
	case "array_agg", "string_agg":
		sql, ok := s.Dialect.ConcatAggregate(function, field)
		if !ok {
			return "", true, nil
		}
		return sql, false, nil
	}
	return "", false, fmt.Errorf("unsupported aggregate function %q", function)
}

// --- shared helpers ---

func validateRelationSpec(label, localKey, foreignTable, foreignKey string) error {
	if label == "" || !core.IsValidIdentifier(label) {
		return fmt.Errorf("invalid relation label %q", label)
	}
	if !core.IsValidIdentifier(localKey) {
		return fmt.Errorf("invalid local key %q", localKey)
	}
	if !core.IsValidSlug(foreignTable) {
		return fmt.Errorf("invalid foreign table %q", foreignTable)
	}
	if foreignKey != "" && !core.IsValidIdentifier(foreignKey) {
		return fmt.Errorf("invalid foreign key %q", foreignKey)
	}
	return nil
}

// distinctKeys collects the distinct non-null local key values in
// first-seen order. keys holds the normalized form used for map lookups,
// raw the original driver values used as bind parameters.
func distinctKeys(records []map[string]any, localKey string) (keys []string, raw []any) {
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		value, ok := record[localKey]
		if !ok || value == nil {
			continue
		}
		key := keyString(value)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		raw = append(raw, value)
	}
	return keys, raw
}

// attach writes every resolved label onto the records, serially.
func attach(records []map[string]any, resolved []resolvedColumn) {
	for _, rc := range resolved {
		for _, record := range records {
			local := record[rc.localKey]
			if local == nil {
				record[rc.label] = rc.identity
				continue
			}
			value, ok := rc.values[keyString(local)]
			if !ok {
				record[rc.label] = rc.identity
				continue
			}
			record[rc.label] = value
		}
	}
}

func pickDisplay(row map[string]any, displays []string) any {
	if len(displays) == 1 {
		return row[displays[0]]
	}
	value := make(map[string]any, len(displays))
	for _, d := range displays {
		value[d] = row[d]
	}
	return value
}

func keyString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
