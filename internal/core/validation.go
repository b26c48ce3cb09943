// internal/core/validation.go
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// Slugs double as physical table names: lowercase, letter first.
var slugRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Column and filter identifiers (a superset of slugs; case-insensitive).
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// System columns every dynamic table carries. Their names are reserved.
var SystemColumns = []string{"id", "created_at", "updated_at", "created_by"}

// Aggregate functions accepted in an AggregateColumn spec. string_agg is
// accepted here but has no SQL emission in the resolver (known gap).
var AllowedAggregateFunctions = map[string]bool{
	"count":      true,
	"sum":        true,
	"avg":        true,
	"min":        true,
	"max":        true,
	"array_agg":  true,
	"string_agg": true,
}

// IsValidSlug checks a workspace/table slug.
func IsValidSlug(slug string) bool {
	return slugRegex.MatchString(slug) && len(slug) <= 63
}

// IsValidIdentifier checks a column or filter identifier.
func IsValidIdentifier(name string) bool {
	return identifierRegex.MatchString(name) && len(name) <= 64
}

// IsSystemColumn reports whether name is one of the four system columns.
func IsSystemColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, sys := range SystemColumns {
		if lower == sys {
			return true
		}
	}
	return false
}

// ValidateColumnDefinition checks a single column definition against the
// identifier rules and the compatibility catalog.
func ValidateColumnDefinition(col *domain.ColumnDefinition) error {
	if !IsValidIdentifier(col.Name) {
		return fmt.Errorf("invalid column name %q: use letters, digits and underscores, max length 64", col.Name)
	}
	if IsSystemColumn(col.Name) {
		return fmt.Errorf("column name %q is reserved", col.Name)
	}
	if !IsKnownDataType(col.DataType) {
		return fmt.Errorf("unsupported data type %q for column %q", col.DataType, col.Name)
	}

	views, err := AllowedViewTypes(col.DataType)
	if err != nil {
		return err
	}
	if !contains(views, col.ViewType) {
		return fmt.Errorf("view type %q is not allowed for data type %q (column %q)", col.ViewType, col.DataType, col.Name)
	}

	editors, err := AllowedEditors(col.ViewType)
	if err != nil {
		return err
	}
	if !contains(editors, col.ViewEditor) {
		return fmt.Errorf("editor %q is not allowed for view type %q (column %q)", col.ViewEditor, col.ViewType, col.Name)
	}

	if col.IsRelation {
		if col.RelationSetting == nil {
			return fmt.Errorf("column %q is marked as relation but has no relation setting", col.Name)
		}
		if !IsValidSlug(col.RelationSetting.TargetTable) {
			return fmt.Errorf("invalid relation target table %q on column %q", col.RelationSetting.TargetTable, col.Name)
		}
		if col.RelationSetting.TargetKey != "" && !IsValidIdentifier(col.RelationSetting.TargetKey) {
			return fmt.Errorf("invalid relation target key %q on column %q", col.RelationSetting.TargetKey, col.Name)
		}
		if col.RelationSetting.DisplayColumn != "" && !IsValidIdentifier(col.RelationSetting.DisplayColumn) {
			return fmt.Errorf("invalid relation display column %q on column %q", col.RelationSetting.DisplayColumn, col.Name)
		}
	}
	return nil
}

// ValidateColumnDefinitions checks a full column list: each definition
// individually plus name uniqueness (case-insensitive).
func ValidateColumnDefinitions(cols []domain.ColumnDefinition) error {
	seen := make(map[string]bool, len(cols))
	for i := range cols {
		if err := ValidateColumnDefinition(&cols[i]); err != nil {
			return err
		}
		lower := strings.ToLower(cols[i].Name)
		if seen[lower] {
			return fmt.Errorf("duplicate column name %q", cols[i].Name)
		}
		seen[lower] = true
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
