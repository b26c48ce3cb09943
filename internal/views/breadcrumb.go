// internal/views/breadcrumb.go
package views

// DefaultBreadcrumbMaxDepth caps the upward walk when the caller gives
// no maximum.
const DefaultBreadcrumbMaxDepth = 10

// BreadcrumbOptions configures the parent-chain walk.
type BreadcrumbOptions struct {
	ParentColumn string `json:"parent_column"`
	LabelColumn  string `json:"label_column"`
	MaxDepth     int    `json:"max_depth,omitempty"`
	RootToLeaf   bool   `json:"root_to_leaf,omitempty"` // reverse the trail before returning
}

// Crumb is one hop of a breadcrumb trail.
type Crumb struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// BuildBreadcrumb walks a self-referential parent chain upward from
// startID, recording one crumb per hop. The walk stops at MaxDepth or
// upon revisiting an already-seen identifier, so a cycle in the data
// terminates instead of looping.
func BuildBreadcrumb(records []map[string]any, startID any, opts BreadcrumbOptions) []Crumb {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultBreadcrumbMaxDepth
	}

	byID := make(map[string]map[string]any, len(records))
	for _, record := range records {
		byID[stringify(record["id"])] = record
	}

	trail := make([]Crumb, 0, maxDepth)
	visited := make(map[string]bool)
	current := stringify(startID)

	for len(trail) < maxDepth {
		record, ok := byID[current]
		if !ok || visited[current] {
			break
		}
		visited[current] = true

		trail = append(trail, Crumb{
			Label: stringify(record[opts.LabelColumn]),
			Value: current,
		})

		parent := record[opts.ParentColumn]
		if isEmpty(parent) {
			break
		}
		current = stringify(parent)
	}

	if opts.RootToLeaf {
		for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
			trail[i], trail[j] = trail[j], trail[i]
		}
	}
	return trail
}
