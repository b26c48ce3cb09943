// internal/dialect/postgres.go
package dialect

import (
	"fmt"
	"strings"

	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Postgres is the primary production engine: it supports column
// retyping, jsonb traversal and the concat aggregates.
type Postgres struct{}

func (Postgres) Name() string   { return "postgres" }
func (Postgres) Driver() string { return "pgx" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) PhysicalType(col *domain.ColumnDefinition) (string, error) {
	switch col.DataType {
	case "text":
		return "TEXT", nil
	case "varchar":
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255)), nil
	case "char":
		return fmt.Sprintf("CHAR(%d)", lengthOr(col, 1)), nil
	case "int":
		return "INTEGER", nil
	case "bigint":
		return "BIGINT", nil
	case "decimal":
		precision, scale := precisionScale(col)
		return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale), nil
	case "float":
		return "REAL", nil
	case "double":
		return "DOUBLE PRECISION", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	case "time":
		return "TIME", nil
	case "timestamp":
		return "TIMESTAMP", nil
	case "timestamptz":
		return "TIMESTAMPTZ", nil
	case "json":
		return "JSON", nil
	case "jsonb":
		return "JSONB", nil
	case "uuid":
		return "UUID", nil
	}
	return "", unknownType("postgres", col.DataType)
}

func (Postgres) DefaultLiteral(col *domain.ColumnDefinition, value string) (string, error) {
	switch col.DataType {
	case "int", "bigint", "decimal", "float", "double":
		return value, nil
	case "boolean":
		if value == "true" || value == "false" {
			return strings.ToUpper(value), nil
		}
		return "", fmt.Errorf("invalid boolean default %q for column %q", value, col.Name)
	default:
		return "'" + escapeLiteral(value) + "'", nil
	}
}

func (Postgres) JSONPath(column string, path []string) string {
	// column #>> '{a,b}' extracts as text at the given path.
	return fmt.Sprintf("%s #>> '{%s}'", column, strings.Join(path, ","))
}

func (p Postgres) TextMatch(column string, n int) string {
	return fmt.Sprintf("%s ILIKE %s", column, p.Placeholder(n))
}

func (Postgres) ConcatAggregate(function, expr string) (string, bool) {
	switch function {
	case "array_agg":
		return fmt.Sprintf("array_agg(%s)", expr), true
	}
	// string_agg is declared in the request schema but intentionally has
	// no emission here; the resolver skips it.
	return "", false
}

func (Postgres) UpdatedAtTrigger(table string) []string {
	bare := bareTable(table)
	return []string{
		`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN
  NEW.updated_at = now();
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;`,
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_set_updated_at ON %s;", bare, table),
		fmt.Sprintf("CREATE TRIGGER %s_set_updated_at BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION set_updated_at();", bare, table),
	}
}

func (Postgres) DropTrigger(table string) []string {
	return []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_set_updated_at ON %s;", bareTable(table), table),
	}
}

func (Postgres) SupportsRetype() bool { return true }

func (Postgres) RetypeColumn(table, column, physicalType string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;",
		table, column, physicalType, column, physicalType)
}

func (Postgres) CurrentTimestamp() string { return "now()" }

// bareTable strips a schema qualifier so trigger names stay identifiers.
func bareTable(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}
