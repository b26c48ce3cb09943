// internal/dialect/dialect.go
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Dialect abstracts the SQL differences between the supported engines.
// Everything that varies between PostgreSQL and SQLite when compiling
// queries or synthesizing DDL lives behind this interface; the compiler
// and synthesizer stay engine-agnostic.
//
// Identifiers handed to a Dialect are always pre-validated schema
// metadata, never free-form caller input.
type Dialect interface {
	// Name is the engine name ("postgres", "sqlite").
	Name() string

	// Driver is the database/sql driver name to open connections with.
	Driver() string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string

	// PhysicalType maps a column definition to the engine's column type.
	PhysicalType(col *domain.ColumnDefinition) (string, error)

	// DefaultLiteral renders a column default as an escaped SQL literal.
	DefaultLiteral(col *domain.ColumnDefinition, value string) (string, error)

	// JSONPath renders an expression traversing into a json column.
	JSONPath(column string, path []string) string

	// TextMatch renders a case-insensitive substring match against the
	// n-th placeholder. The caller binds the pattern value.
	TextMatch(column string, n int) string

	// ConcatAggregate renders an array/string concatenation aggregate.
	// ok is false when the engine (or this service) has no mapping for
	// the function.
	ConcatAggregate(function, expr string) (sql string, ok bool)

	// UpdatedAtTrigger returns the drop-then-create statements keeping
	// updated_at fresh on UPDATE. Statements are idempotent.
	UpdatedAtTrigger(table string) []string

	// DropTrigger returns the statements removing the updated_at trigger.
	DropTrigger(table string) []string

	// SupportsRetype reports whether ALTER COLUMN ... TYPE exists.
	SupportsRetype() bool

	// RetypeColumn renders the ALTER statement changing a column's type.
	RetypeColumn(table, column, physicalType string) string

	// CurrentTimestamp is the engine's now() expression.
	CurrentTimestamp() string
}

var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// ForDSN picks the dialect from a connection string, the same way the
// driver is picked: postgres:// (or postgresql://) selects PostgreSQL,
// anything else is treated as a SQLite path.
func ForDSN(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return Postgres{}
	}
	return SQLite{}
}

// escapeLiteral doubles single quotes for embedding in a DDL literal.
// Only used for column defaults, which come from validated schema
// metadata rather than per-request values.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func lengthOr(col *domain.ColumnDefinition, fallback int) int {
	if col.DataTypeOptions != nil && col.DataTypeOptions.Length > 0 {
		return col.DataTypeOptions.Length
	}
	return fallback
}

func precisionScale(col *domain.ColumnDefinition) (int, int) {
	precision, scale := 18, 6
	if col.DataTypeOptions != nil {
		if col.DataTypeOptions.Precision > 0 {
			precision = col.DataTypeOptions.Precision
		}
		if col.DataTypeOptions.Scale > 0 {
			scale = col.DataTypeOptions.Scale
		}
	}
	return precision, scale
}

func unknownType(name, dataType string) error {
	return fmt.Errorf("dialect %s: no physical mapping for data type %q", name, dataType)
}
