// internal/views/tree_test.go
package views

import "testing"

func treeRecords() []map[string]any {
	return []map[string]any{
		{"id": "a", "parent": nil},
		{"id": "b", "parent": "a"},
		{"id": "c", "parent": "a"},
		{"id": "d", "parent": "b"},
		{"id": "e", "parent": nil},
	}
}

func children(node map[string]any) []map[string]any {
	return node["children"].([]map[string]any)
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree(treeRecords(), "parent", nil, 0)
	if len(tree) != 2 {
		t.Fatalf("got %d roots, want 2", len(tree))
	}
	if tree[0]["id"] != "a" || tree[1]["id"] != "e" {
		t.Fatalf("roots = %v, %v", tree[0]["id"], tree[1]["id"])
	}

	kids := children(tree[0])
	if len(kids) != 2 || kids[0]["id"] != "b" {
		t.Fatalf("children of a = %v", kids)
	}
	grand := children(kids[0])
	if len(grand) != 1 || grand[0]["id"] != "d" {
		t.Fatalf("children of b = %v", grand)
	}
	if len(children(tree[1])) != 0 {
		t.Errorf("e must have no children")
	}
}

func TestBuildTreeMaxDepth(t *testing.T) {
	tree := BuildTree(treeRecords(), "parent", nil, 1)
	if len(tree) != 2 {
		t.Fatalf("got %d roots, want 2", len(tree))
	}
	// Capped nodes keep an empty children array.
	if got := children(tree[0]); len(got) != 0 {
		t.Errorf("depth cap leaked children: %v", got)
	}
}

func TestBuildTreeSubRoot(t *testing.T) {
	tree := BuildTree(treeRecords(), "parent", "b", 0)
	if len(tree) != 1 || tree[0]["id"] != "d" {
		t.Fatalf("subtree of b = %v", tree)
	}
}

func TestBuildTreeDoesNotMutateInput(t *testing.T) {
	records := treeRecords()
	BuildTree(records, "parent", nil, 0)
	for _, record := range records {
		if _, ok := record["children"]; ok {
			t.Fatal("input record mutated with children key")
		}
	}
}
