// internal/dialect/sqlite.go
package dialect

import (
	"fmt"
	"strings"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// SQLite backs local development and the test suite. It has no
// ALTER COLUMN ... TYPE, so every retype is reported unsupported and the
// synthesizer leaves the column untouched (the documented no-op
// boundary).
type SQLite struct{}

func (SQLite) Name() string   { return "sqlite" }
func (SQLite) Driver() string { return "sqlite3" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) PhysicalType(col *domain.ColumnDefinition) (string, error) {
	switch col.DataType {
	case "text", "char", "time", "json", "jsonb", "uuid":
		return "TEXT", nil
	case "varchar":
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255)), nil
	case "int", "bigint":
		return "INTEGER", nil
	case "decimal":
		precision, scale := precisionScale(col)
		return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale), nil
	case "float", "double":
		return "REAL", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	case "timestamp", "timestamptz":
		return "TIMESTAMP", nil
	}
	return "", unknownType("sqlite", col.DataType)
}

func (SQLite) DefaultLiteral(col *domain.ColumnDefinition, value string) (string, error) {
	switch col.DataType {
	case "int", "bigint", "decimal", "float", "double":
		return value, nil
	case "boolean":
		switch value {
		case "true":
			return "1", nil
		case "false":
			return "0", nil
		}
		return "", fmt.Errorf("invalid boolean default %q for column %q", value, col.Name)
	default:
		return "'" + escapeLiteral(value) + "'", nil
	}
}

func (SQLite) JSONPath(column string, path []string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", column, strings.Join(path, "."))
}

func (s SQLite) TextMatch(column string, n int) string {
	// LIKE is case-insensitive for ASCII in SQLite; lower() both sides
	// to keep behavior aligned with ILIKE.
	return fmt.Sprintf("lower(%s) LIKE lower(%s)", column, s.Placeholder(n))
}

func (SQLite) ConcatAggregate(function, expr string) (string, bool) {
	switch function {
	case "array_agg":
		return fmt.Sprintf("group_concat(%s)", expr), true
	}
	return "", false
}

func (SQLite) UpdatedAtTrigger(table string) []string {
	return []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_set_updated_at;", table),
		fmt.Sprintf(`CREATE TRIGGER %s_set_updated_at AFTER UPDATE ON %s
BEGIN
  UPDATE %s SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
END;`, table, table, table),
	}
}

func (SQLite) DropTrigger(table string) []string {
	return []string{fmt.Sprintf("DROP TRIGGER IF EXISTS %s_set_updated_at;", table)}
}

func (SQLite) SupportsRetype() bool { return false }

func (SQLite) RetypeColumn(table, column, physicalType string) string {
	// Unreachable while SupportsRetype is false; kept for interface symmetry.
	return ""
}

func (SQLite) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }
