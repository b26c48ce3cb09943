// internal/views/breadcrumb_test.go
package views

import (
	"reflect"
	"testing"
)

func crumbRecords() []map[string]any {
	return []map[string]any{
		{"id": "1", "parent": nil, "name": "Root"},
		{"id": "2", "parent": "1", "name": "Mid"},
		{"id": "3", "parent": "2", "name": "Leaf"},
	}
}

func TestBuildBreadcrumb(t *testing.T) {
	opts := BreadcrumbOptions{ParentColumn: "parent", LabelColumn: "name"}
	trail := BuildBreadcrumb(crumbRecords(), "3", opts)

	want := []Crumb{
		{Label: "Leaf", Value: "3"},
		{Label: "Mid", Value: "2"},
		{Label: "Root", Value: "1"},
	}
	if !reflect.DeepEqual(trail, want) {
		t.Fatalf("trail = %v; want %v", trail, want)
	}
}

func TestBuildBreadcrumbRootToLeaf(t *testing.T) {
	opts := BreadcrumbOptions{ParentColumn: "parent", LabelColumn: "name", RootToLeaf: true}
	trail := BuildBreadcrumb(crumbRecords(), "3", opts)
	if trail[0].Label != "Root" || trail[len(trail)-1].Label != "Leaf" {
		t.Fatalf("trail = %v; want root first", trail)
	}
}

func TestBuildBreadcrumbCycle(t *testing.T) {
	records := []map[string]any{
		{"id": "1", "parent": "2", "name": "A"},
		{"id": "2", "parent": "1", "name": "B"},
	}
	opts := BreadcrumbOptions{ParentColumn: "parent", LabelColumn: "name"}
	trail := BuildBreadcrumb(records, "1", opts)
	// A cycle terminates after each node is visited once.
	if len(trail) != 2 {
		t.Fatalf("cycle trail = %v; want 2 crumbs", trail)
	}
}

func TestBuildBreadcrumbMaxDepth(t *testing.T) {
	opts := BreadcrumbOptions{ParentColumn: "parent", LabelColumn: "name", MaxDepth: 2}
	trail := BuildBreadcrumb(crumbRecords(), "3", opts)
	if len(trail) != 2 {
		t.Fatalf("trail = %v; want 2 crumbs", trail)
	}
}

func TestBuildBreadcrumbUnknownStart(t *testing.T) {
	opts := BreadcrumbOptions{ParentColumn: "parent", LabelColumn: "name"}
	trail := BuildBreadcrumb(crumbRecords(), "missing", opts)
	if len(trail) != 0 {
		t.Fatalf("trail = %v; want empty", trail)
	}
}
