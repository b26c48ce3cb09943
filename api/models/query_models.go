// api/models/query_models.go
package models

import "github.com/quasarhq/quasar-backend/internal/domain"

// MaxQueryLimit caps the page size a caller can request.
const MaxQueryLimit = 500

// --- Query Request Structs ---

// SortKeyPayload is one ORDER BY entry on the wire.
type SortKeyPayload struct {
	Field     string `json:"field" binding:"required"`
	Direction string `json:"direction" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// RelationColumnPayload asks the resolver to attach foreign display
// values under a label.
type RelationColumnPayload struct {
	Label          string   `json:"label" binding:"required"`
	LocalKey       string   `json:"local_key" binding:"required"`
	ForeignTable   string   `json:"foreign_table" binding:"required"`
	ForeignKey     string   `json:"foreign_key"`
	DisplayColumns []string `json:"display_columns"`
}

// AggregateColumnPayload asks the resolver to attach a computed
// aggregate under a label.
type AggregateColumnPayload struct {
	Label         string `json:"label" binding:"required"`
	LocalKey      string `json:"local_key" binding:"required"`
	ForeignTable  string `json:"foreign_table" binding:"required"`
	ForeignKey    string `json:"foreign_key"`
	Function      string `json:"function" binding:"required"`
	FunctionField string `json:"function_field"`
	GroupBy       string `json:"group_by"`
}

// QueryPayload is the structured query body of POST .../query and the
// view endpoints.
type QueryPayload struct {
	Columns           []string                 `json:"columns"`
	Filters           map[string]any           `json:"filters"`
	Sort              []SortKeyPayload         `json:"sort" binding:"omitempty,dive"`
	Search            string                   `json:"search"`
	Limit             int                      `json:"limit" binding:"omitempty,min=1,max=500"`
	Offset            int                      `json:"offset" binding:"omitempty,min=0"`
	RelationColumns   []RelationColumnPayload  `json:"relation_columns" binding:"omitempty,dive"`
	AggColumns        []AggregateColumnPayload `json:"agg_columns" binding:"omitempty,dive"`
	AggregationFilter []string                 `json:"aggregation_filter"`
}

// ToDomain converts the wire query to the compiler's form.
func (p *QueryPayload) ToDomain() *domain.QueryRequest {
	req := &domain.QueryRequest{
		Columns:           p.Columns,
		Filters:           p.Filters,
		Search:            p.Search,
		Limit:             p.Limit,
		Offset:            p.Offset,
		AggregationFilter: p.AggregationFilter,
	}
	for _, key := range p.Sort {
		req.Sort = append(req.Sort, domain.SortKey{Field: key.Field, Direction: key.Direction})
	}
	for _, rc := range p.RelationColumns {
		req.RelationColumns = append(req.RelationColumns, domain.RelationColumn{
			Label:          rc.Label,
			LocalKey:       rc.LocalKey,
			ForeignTable:   rc.ForeignTable,
			ForeignKey:     rc.ForeignKey,
			DisplayColumns: rc.DisplayColumns,
		})
	}
	for _, ac := range p.AggColumns {
		req.AggColumns = append(req.AggColumns, domain.AggregateColumn{
			Label:         ac.Label,
			LocalKey:      ac.LocalKey,
			ForeignTable:  ac.ForeignTable,
			ForeignKey:    ac.ForeignKey,
			Function:      ac.Function,
			FunctionField: ac.FunctionField,
			GroupBy:       ac.GroupBy,
		})
	}
	return req
}

// --- View Request Structs ---

// KanbanViewRequest groups a query's records into boards by one column.
type KanbanViewRequest struct {
	Query        QueryPayload `json:"query"`
	StatusColumn string       `json:"status_column" binding:"required"`
}

// TreeViewRequest nests a query's records by a parent column.
type TreeViewRequest struct {
	Query        QueryPayload `json:"query"`
	ParentColumn string       `json:"parent_column" binding:"required"`
	RootValue    string       `json:"root_value"`
	MaxDepth     int          `json:"max_depth" binding:"omitempty,min=1"`
}

// GanttViewRequest lays a query's records out on a timeline.
type GanttViewRequest struct {
	Query            QueryPayload `json:"query"`
	NameColumn       string       `json:"name_column" binding:"required"`
	StartColumn      string       `json:"start_column" binding:"required"`
	EndColumn        string       `json:"end_column" binding:"required"`
	ProgressColumn   string       `json:"progress_column"`
	DependencyColumn string       `json:"dependency_column"`
	CategoryColumn   string       `json:"category_column"`
	AssigneeColumn   string       `json:"assignee_column"`
	StatusColumn     string       `json:"status_column"`
	RangeStart       string       `json:"range_start"`
	RangeEnd         string       `json:"range_end"`
}

// DropdownViewRequest reduces a query's records to label/value options.
type DropdownViewRequest struct {
	Query       QueryPayload `json:"query"`
	LabelColumn string       `json:"label_column" binding:"required"`
	ValueColumn string       `json:"value_column" binding:"required"`
	GroupColumn string       `json:"group_column"`
	SkipEmpty   bool         `json:"skip_empty"`
	Distinct    bool         `json:"distinct"`
	Limit       int          `json:"limit" binding:"omitempty,min=1"`
}

// BreadcrumbViewRequest walks a parent chain up from one record.
type BreadcrumbViewRequest struct {
	Query        QueryPayload `json:"query"`
	StartID      string       `json:"start_id" binding:"required"`
	ParentColumn string       `json:"parent_column" binding:"required"`
	LabelColumn  string       `json:"label_column" binding:"required"`
	MaxDepth     int          `json:"max_depth" binding:"omitempty,min=1"`
	RootToLeaf   bool         `json:"root_to_leaf"`
}
