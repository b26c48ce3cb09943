// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

func TestIsValidSlug(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid simple", "projects", true},
		{"valid with underscore", "my_table", true},
		{"valid with digits", "table_123", true},
		{"valid short", "a", true},
		{"valid long (63 chars)", strings.Repeat("a", 63), true},
		{"invalid empty", "", false},
		{"invalid uppercase", "Projects", false},
		{"invalid digit start", "1table", false},
		{"invalid underscore start", "_table", false},
		{"invalid hyphen", "my-table", false},
		{"invalid space", "my table", false},
		{"invalid too long", strings.Repeat("a", 64), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidSlug(tc.input); got != tc.want {
				t.Errorf("IsValidSlug(%q) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid simple", "status", true},
		{"valid uppercase", "STATUS", true},
		{"valid underscore start", "_meta", true},
		{"valid long (64 chars)", strings.Repeat("a", 64), true},
		{"invalid empty", "", false},
		{"invalid digit start", "1col", false},
		{"invalid dot", "a.b", false},
		{"invalid quote", "col'", false},
		{"invalid semicolon", "col;drop", false},
		{"invalid too long", strings.Repeat("a", 65), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidIdentifier(tc.input); got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsSystemColumn(t *testing.T) {
	for _, name := range []string{"id", "ID", "created_at", "Updated_At", "created_by"} {
		if !IsSystemColumn(name) {
			t.Errorf("IsSystemColumn(%q) = false; want true", name)
		}
	}
	for _, name := range []string{"status", "idx", "created", ""} {
		if IsSystemColumn(name) {
			t.Errorf("IsSystemColumn(%q) = true; want false", name)
		}
	}
}

func textColumn(name string) domain.ColumnDefinition {
	return domain.ColumnDefinition{
		Name:       name,
		DataType:   TypeText,
		Nullable:   true,
		ViewType:   ViewText,
		ViewEditor: "input",
	}
}

func TestValidateColumnDefinition(t *testing.T) {
	testCases := []struct {
		name    string
		col     domain.ColumnDefinition
		wantErr bool
	}{
		{"valid text", textColumn("title"), false},
		{"valid decimal number", domain.ColumnDefinition{
			Name: "amount", DataType: TypeDecimal, Nullable: true, ViewType: ViewNumber, ViewEditor: "number",
		}, false},
		{"valid relation", domain.ColumnDefinition{
			Name: "owner", DataType: TypeUUID, Nullable: true, ViewType: ViewRelation, ViewEditor: "relationpicker",
			IsRelation:      true,
			RelationSetting: &domain.RelationSetting{TargetTable: "users", TargetKey: "id", DisplayColumn: "name"},
		}, false},
		{"reserved name", textColumn("created_at"), true},
		{"bad identifier", textColumn("bad name"), true},
		{"unknown data type", domain.ColumnDefinition{
			Name: "x", DataType: "money", ViewType: ViewText, ViewEditor: "input",
		}, true},
		{"view type not allowed for type", domain.ColumnDefinition{
			Name: "flag", DataType: TypeBoolean, ViewType: ViewText, ViewEditor: "input",
		}, true},
		{"editor not allowed for view", domain.ColumnDefinition{
			Name: "title", DataType: TypeText, ViewType: ViewText, ViewEditor: "datepicker",
		}, true},
		{"relation without setting", domain.ColumnDefinition{
			Name: "owner", DataType: TypeUUID, ViewType: ViewRelation, ViewEditor: "relationpicker", IsRelation: true,
		}, true},
		{"relation bad target table", domain.ColumnDefinition{
			Name: "owner", DataType: TypeUUID, ViewType: ViewRelation, ViewEditor: "relationpicker",
			IsRelation:      true,
			RelationSetting: &domain.RelationSetting{TargetTable: "Users!"},
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateColumnDefinition(&tc.col)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateColumnDefinition(%q) error = %v; wantErr %v", tc.col.Name, err, tc.wantErr)
			}
		})
	}
}

func TestValidateColumnDefinitionsDuplicates(t *testing.T) {
	cols := []domain.ColumnDefinition{textColumn("title"), textColumn("Title")}
	if err := ValidateColumnDefinitions(cols); err == nil {
		t.Fatal("expected duplicate column error, got nil")
	}

	cols = []domain.ColumnDefinition{textColumn("title"), textColumn("notes")}
	if err := ValidateColumnDefinitions(cols); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
