// internal/core/ddl.go
package core

import (
	"fmt"
	"strings"

	"github.com/quasarhq/quasar-backend/internal/dialect"
	"github.com/quasarhq/quasar-backend/internal/domain"
)

// CreateTableSQL synthesizes the statements that bring a dynamic table
// to life: one CREATE TABLE with the four system columns first and every
// declared column after, followed by the drop-then-create updated_at
// trigger. The column list must already be validated.
func CreateTableSQL(d dialect.Dialect, table string, cols []domain.ColumnDefinition) ([]string, error) {
	idType, err := d.PhysicalType(&domain.ColumnDefinition{Name: "id", DataType: TypeUUID})
	if err != nil {
		return nil, err
	}

	defs := []string{
		fmt.Sprintf("id %s PRIMARY KEY", idType),
		fmt.Sprintf("created_at TIMESTAMP NOT NULL DEFAULT %s", d.CurrentTimestamp()),
		fmt.Sprintf("updated_at TIMESTAMP NOT NULL DEFAULT %s", d.CurrentTimestamp()),
		"created_by TEXT",
	}
	for i := range cols {
		def, err := columnDef(d, &cols[i])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	statements := []string{
		fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", table, strings.Join(defs, ",\n  ")),
	}
	statements = append(statements, d.UpdatedAtTrigger(table)...)
	return statements, nil
}

// AlterTableSQL diffs two column lists and synthesizes the alterations:
// columns present only in new are added, columns present only in old are
// dropped (destructive, no backup), and columns whose data type changed
// are re-typed when the catalog's migration targets and the dialect
// allow it. A disallowed retype is silently skipped; the column keeps
// its physical type. Identical lists synthesize zero statements.
func AlterTableSQL(d dialect.Dialect, table string, oldCols, newCols []domain.ColumnDefinition) ([]string, error) {
	oldByName := indexColumns(oldCols)
	newByName := indexColumns(newCols)

	var statements []string

	// Add-set, in declaration order.
	for i := range newCols {
		col := &newCols[i]
		if _, ok := oldByName[strings.ToLower(col.Name)]; ok {
			continue
		}
		def, err := columnDef(d, col)
		if err != nil {
			return nil, err
		}
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, def))
	}

	// Drop-set.
	for i := range oldCols {
		col := &oldCols[i]
		if _, ok := newByName[strings.ToLower(col.Name)]; ok {
			continue
		}
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, col.Name))
	}

	// Retype-set: same name, different data type.
	for i := range newCols {
		newCol := &newCols[i]
		oldCol, ok := oldByName[strings.ToLower(newCol.Name)]
		if !ok || oldCol.DataType == newCol.DataType {
			continue
		}
		if !CanMigrate(oldCol.DataType, newCol.DataType) || !d.SupportsRetype() {
			// Outside the catalog's migration targets (or the engine
			// cannot retype): leave the physical column untouched.
			continue
		}
		physType, err := d.PhysicalType(newCol)
		if err != nil {
			return nil, err
		}
		statements = append(statements, d.RetypeColumn(table, newCol.Name, physType))
	}

	return statements, nil
}

// DropTableSQL synthesizes the statements removing a dynamic table and
// its trigger.
func DropTableSQL(d dialect.Dialect, table string) []string {
	statements := d.DropTrigger(table)
	return append(statements, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table))
}

func columnDef(d dialect.Dialect, col *domain.ColumnDefinition) (string, error) {
	physType, err := d.PhysicalType(col)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(col.Name)
	b.WriteString(" ")
	b.WriteString(physType)
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		literal, err := d.DefaultLiteral(col, *col.Default)
		if err != nil {
			return "", err
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(literal)
	}
	return b.String(), nil
}

func indexColumns(cols []domain.ColumnDefinition) map[string]*domain.ColumnDefinition {
	byName := make(map[string]*domain.ColumnDefinition, len(cols))
	for i := range cols {
		byName[strings.ToLower(cols[i].Name)] = &cols[i]
	}
	return byName
}
