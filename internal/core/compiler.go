// internal/core/compiler.go
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quasarhq/quasar-backend/internal/dialect"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Pagination defaults. The hard ceiling on limit is enforced at the
// request-validation boundary, not here.
const (
	DefaultLimit = 50
)

// CompiledQuery is a parameterized SELECT plus its matching COUNT.
// The COUNT reuses the identical WHERE clause, so the reported total is
// filtered the same way the page is.
type CompiledQuery struct {
	SQL       string
	Args      []any
	CountSQL  string
	CountArgs []any
}

// Compiler builds parameterized queries for one dynamic table. Table is
// the physical, namespace-qualified name; Qualify maps a foreign table
// slug to its physical name for relation subqueries.
type Compiler struct {
	Dialect dialect.Dialect
	Table   string
	Qualify func(slug string) string
	Schema  *domain.TableSchema
}

// Compile turns parsed columns plus the structured request into a
// single parameterized SELECT and the matching COUNT. Identifiers are
// validated before interpolation; every value is a bound parameter.
func (c *Compiler) Compile(cols []ParsedColumn, req *domain.QueryRequest) (*CompiledQuery, error) {
	selectList, err := c.buildSelectList(cols)
	if err != nil {
		return nil, err
	}

	whereSQL, whereArgs, err := c.buildWhere(req)
	if err != nil {
		return nil, err
	}

	orderSQL, err := c.buildOrder(req.Sort)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList)
	b.WriteString(" FROM ")
	b.WriteString(c.Table)
	b.WriteString(whereSQL)
	b.WriteString(orderSQL)
	fmt.Fprintf(&b, " LIMIT %d OFFSET %d", limit, offset)

	countSQL := "SELECT COUNT(*) FROM " + c.Table + whereSQL
	countArgs := make([]any, len(whereArgs))
	copy(countArgs, whereArgs)

	return &CompiledQuery{
		SQL:       b.String(),
		Args:      whereArgs,
		CountSQL:  countSQL,
		CountArgs: countArgs,
	}, nil
}

func (c *Compiler) buildSelectList(cols []ParsedColumn) (string, error) {
	if len(cols) == 0 {
		return "*", nil
	}

	exprs := make([]string, 0, len(cols))
	for i := range cols {
		col := &cols[i]
		if err := validateSpecSegments(col); err != nil {
			return "", err
		}

		switch col.Kind {
		case ColumnStandard:
			exprs = append(exprs, col.Base)

		case ColumnJSONPath:
			expr := c.Dialect.JSONPath(col.Base, col.Path)
			exprs = append(exprs, fmt.Sprintf("%s AS %q", expr, col.Alias))

		case ColumnRelation:
			setting := col.Relation
			targetKey := setting.TargetKey
			if targetKey == "" {
				targetKey = "id"
			}
			display := setting.DisplayColumn
			if display == "" {
				display = "id"
			}
			// One correlated scalar subquery per relation column rather
			// than a JOIN: no row multiplication, and the foreign table
			// name comes from validated schema metadata.
			expr := fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s.%s LIMIT 1) AS %q",
				display, c.Qualify(setting.TargetTable), targetKey, c.Table, col.Base, col.Alias)
			exprs = append(exprs, expr)

		default:
			return "", fmt.Errorf("unknown parsed column kind %q for %q", col.Kind, col.Spec)
		}
	}
	return strings.Join(exprs, ", "), nil
}

func (c *Compiler) buildWhere(req *domain.QueryRequest) (string, []any, error) {
	var clauses []string
	var args []any
	n := 0

	// Filters in deterministic (sorted) key order.
	keys := make([]string, 0, len(req.Filters))
	for key := range req.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expr, err := c.filterExpr(key)
		if err != nil {
			return "", nil, err
		}
		n++
		clauses = append(clauses, fmt.Sprintf("%s = %s", expr, c.Dialect.Placeholder(n)))
		args = append(args, req.Filters[key])
	}

	// Free-text search ORs a case-insensitive substring match across
	// every text-typed declared column.
	if search := strings.TrimSpace(req.Search); search != "" {
		var matches []string
		pattern := "%" + search + "%"
		for i := range c.Schema.Columns {
			col := &c.Schema.Columns[i]
			if !IsTextType(col.DataType) {
				continue
			}
			n++
			matches = append(matches, c.Dialect.TextMatch(col.Name, n))
			args = append(args, pattern)
		}
		if len(matches) > 0 {
			clauses = append(clauses, "("+strings.Join(matches, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// filterExpr resolves a filter key to a column expression: a declared or
// system column passes through, a dotted key becomes a json traversal.
func (c *Compiler) filterExpr(key string) (string, error) {
	dot := strings.Index(key, ".")
	if dot < 0 {
		if !IsValidIdentifier(key) {
			return "", fmt.Errorf("invalid filter key %q", key)
		}
		return key, nil
	}

	base := key[:dot]
	path := strings.Split(key[dot+1:], ".")
	if !IsValidIdentifier(base) {
		return "", fmt.Errorf("invalid filter key %q", key)
	}
	for _, segment := range path {
		if !IsValidIdentifier(segment) {
			return "", fmt.Errorf("invalid filter key %q", key)
		}
	}
	return c.Dialect.JSONPath(base, path), nil
}

func (c *Compiler) buildOrder(keys []domain.SortKey) (string, error) {
	if len(keys) == 0 {
		return " ORDER BY created_at DESC", nil
	}

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		if !IsValidIdentifier(key.Field) {
			return "", fmt.Errorf("invalid sort field %q", key.Field)
		}
		direction := strings.ToUpper(key.Direction)
		if direction != "ASC" && direction != "DESC" {
			direction = "ASC"
		}
		entries = append(entries, key.Field+" "+direction)
	}
	return " ORDER BY " + strings.Join(entries, ", "), nil
}

func validateSpecSegments(col *ParsedColumn) error {
	if !IsValidIdentifier(col.Base) {
		return fmt.Errorf("invalid column identifier %q", col.Spec)
	}
	for _, segment := range col.Path {
		if !IsValidIdentifier(segment) {
			return fmt.Errorf("invalid column identifier %q", col.Spec)
		}
	}
	return nil
}
