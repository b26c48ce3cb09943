// internal/views/tree.go
package views

// DefaultTreeMaxDepth caps recursion when the caller gives no maximum.
const DefaultTreeMaxDepth = 10

// BuildTree recursively partitions records by a parent-pointer column,
// starting from rootValue (empty/nil selects rows without a parent).
// Each node is the record itself with a "children" array attached.
// Recursion stops at maxDepth: nodes at the cap keep an empty children
// array, no error is raised.
func BuildTree(records []map[string]any, parentColumn string, rootValue any, maxDepth int) []map[string]any {
	if maxDepth <= 0 {
		maxDepth = DefaultTreeMaxDepth
	}

	// Children bucketed by the parent value they point at.
	byParent := make(map[string][]map[string]any)
	for _, record := range records {
		byParent[stringify(record[parentColumn])] = append(byParent[stringify(record[parentColumn])], record)
	}

	return buildSubtree(byParent, stringify(rootValue), 1, maxDepth)
}

func buildSubtree(byParent map[string][]map[string]any, parentKey string, depth, maxDepth int) []map[string]any {
	nodes := make([]map[string]any, 0, len(byParent[parentKey]))
	for _, record := range byParent[parentKey] {
		node := make(map[string]any, len(record)+1)
		for k, v := range record {
			node[k] = v
		}

		children := make([]map[string]any, 0)
		if depth < maxDepth {
			children = buildSubtree(byParent, stringify(record["id"]), depth+1, maxDepth)
		}
		node["children"] = children
		nodes = append(nodes, node)
	}
	return nodes
}
