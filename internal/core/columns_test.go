// internal/core/columns_test.go
package core

import (
	"reflect"
	"testing"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

func testSchema() *domain.TableSchema {
	return &domain.TableSchema{
		Slug: "tasks",
		Columns: []domain.ColumnDefinition{
			{Name: "title", DataType: TypeText, Nullable: true},
			{Name: "meta", DataType: TypeJSON, Nullable: true},
			{
				Name: "owner", DataType: TypeUUID, Nullable: true,
				IsRelation: true,
				RelationSetting: &domain.RelationSetting{
					TargetTable: "users", TargetKey: "id", DisplayColumn: "name",
				},
			},
		},
	}
}

func specs(cols []ParsedColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Spec
	}
	return out
}

func TestParseColumnsOrdering(t *testing.T) {
	cols := ParseColumns([]string{"title", "id", "owner"}, testSchema(), "status")
	want := []string{"id", "created_at", "updated_at", "created_by", "status", "title", "owner"}
	if !reflect.DeepEqual(specs(cols), want) {
		t.Fatalf("order = %v; want %v", specs(cols), want)
	}
}

func TestParseColumnsDedupe(t *testing.T) {
	cols := ParseColumns([]string{"title", "title", " title ", ""}, testSchema())
	want := []string{"id", "created_at", "updated_at", "created_by", "title"}
	if !reflect.DeepEqual(specs(cols), want) {
		t.Fatalf("order = %v; want %v", specs(cols), want)
	}
}

func TestParseColumnsWildcard(t *testing.T) {
	cols := ParseColumns([]string{"meta.a", "*"}, testSchema())
	want := []string{"id", "created_at", "updated_at", "created_by", "title", "meta", "owner"}
	if !reflect.DeepEqual(specs(cols), want) {
		t.Fatalf("wildcard expansion = %v; want %v", specs(cols), want)
	}
	for _, c := range cols {
		if c.Kind != ColumnStandard {
			t.Errorf("wildcard column %q kind = %q; want standard", c.Spec, c.Kind)
		}
	}
}

func TestParseColumnsRelationTraversal(t *testing.T) {
	cols := ParseColumns([]string{"owner.email"}, testSchema())
	c := cols[len(cols)-1]
	if c.Kind != ColumnRelation {
		t.Fatalf("kind = %q; want relation", c.Kind)
	}
	if c.Base != "owner" || c.Alias != "owner.email" {
		t.Errorf("base/alias = %q/%q", c.Base, c.Alias)
	}
	// The path overrides the configured display column.
	if c.Relation.DisplayColumn != "email" {
		t.Errorf("display column = %q; want email", c.Relation.DisplayColumn)
	}
	// The declared setting must stay untouched.
	if got := testSchema().Column("owner").RelationSetting.DisplayColumn; got != "name" {
		t.Errorf("declared display column mutated to %q", got)
	}
}

func TestParseColumnsJSONPath(t *testing.T) {
	cols := ParseColumns([]string{"meta.labels.color"}, testSchema())
	c := cols[len(cols)-1]
	if c.Kind != ColumnJSONPath {
		t.Fatalf("kind = %q; want json_path", c.Kind)
	}
	if c.Base != "meta" || !reflect.DeepEqual(c.Path, []string{"labels", "color"}) {
		t.Errorf("base = %q, path = %v", c.Base, c.Path)
	}
}
