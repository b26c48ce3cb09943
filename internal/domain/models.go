// internal/domain/models.go
package domain

import "time"

// User defines the structure for user data in the metadata store.
type User struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"` // public uuid identifier
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Workspace is a tenant: its dynamic tables and schema catalog are
// isolated from every other workspace.
type Workspace struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership roles, consumed by the permission oracle.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// RelationSetting configures a relation column: which table the local
// key points at and which foreign column is shown for it.
type RelationSetting struct {
	TargetTable   string `json:"target_table"`
	TargetKey     string `json:"target_key"`
	DisplayColumn string `json:"display_column"`
}

// TypeOptions carry physical sizing for types that need it.
type TypeOptions struct {
	Length    int `json:"length,omitempty"`    // varchar/char
	Precision int `json:"precision,omitempty"` // decimal
	Scale     int `json:"scale,omitempty"`     // decimal
}

// ColumnDefinition is one declared column of a dynamic table.
type ColumnDefinition struct {
	Name            string           `json:"name"`
	DataType        string           `json:"data_type"`
	DataTypeOptions *TypeOptions     `json:"data_type_options,omitempty"`
	Nullable        bool             `json:"nullable"`
	Default         *string          `json:"default,omitempty"`
	ViewType        string           `json:"view_type"`
	ViewEditor      string           `json:"view_editor"`
	IsRelation      bool             `json:"is_relation,omitempty"`
	RelationSetting *RelationSetting `json:"relation_setting,omitempty"`
}

// TableSchema is the tenant-scoped declaration of one dynamic table.
// Slug doubles as the physical table name.
type TableSchema struct {
	ID          int64              `json:"id"`
	WorkspaceID int64              `json:"workspace_id"`
	Slug        string             `json:"slug"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Columns     []ColumnDefinition `json:"columns"`
	IsSystem    bool               `json:"is_system,omitempty"`
	HasRelation bool               `json:"has_relation,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Column returns the declared column with the given name, or nil.
func (s *TableSchema) Column(name string) *ColumnDefinition {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// RelationColumn is a request-scoped spec asking the resolver to attach
// related records to each row by a local/foreign key join.
type RelationColumn struct {
	Label          string   `json:"label"`
	LocalKey       string   `json:"local_key"`
	ForeignTable   string   `json:"foreign_table"`
	ForeignKey     string   `json:"foreign_key"`
	DisplayColumns []string `json:"display_columns"`
}

// AggregateColumn is a request-scoped spec asking the resolver to attach
// a computed aggregate to each row.
type AggregateColumn struct {
	Label         string `json:"label"`
	LocalKey      string `json:"local_key"`
	ForeignTable  string `json:"foreign_table"`
	ForeignKey    string `json:"foreign_key"`
	Function      string `json:"function"` // count/sum/avg/min/max/array_agg/string_agg
	FunctionField string `json:"function_field,omitempty"`
	GroupBy       string `json:"group_by,omitempty"`
}

// SortKey is one ORDER BY entry of a structured query.
type SortKey struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// QueryRequest is the structured query the compiler consumes.
type QueryRequest struct {
	Columns           []string          `json:"columns"`
	Filters           map[string]any    `json:"filters"`
	Sort              []SortKey         `json:"sort"`
	Search            string            `json:"search"`
	Limit             int               `json:"limit"`
	Offset            int               `json:"offset"`
	RelationColumns   []RelationColumn  `json:"relation_columns"`
	AggColumns        []AggregateColumn `json:"agg_columns"`
	AggregationFilter []string          `json:"aggregation_filter"` // columns to build facets for
}

// QueryResponse is the enriched result of a structured query.
type QueryResponse struct {
	Records     []map[string]any `json:"records"`
	Total       int64            `json:"total"`
	Limit       int              `json:"limit"`
	Offset      int              `json:"offset"`
	Aggregation map[string]any   `json:"aggregation,omitempty"`
}
