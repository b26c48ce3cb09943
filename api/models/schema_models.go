// api/models/schema_models.go
package models

import "github.com/quasarhq/quasar-backend/internal/domain"

// --- Table/Schema Request Structs ---

// RelationSettingPayload mirrors domain.RelationSetting on the wire.
type RelationSettingPayload struct {
	TargetTable   string `json:"target_table" binding:"required"`
	TargetKey     string `json:"target_key"`
	DisplayColumn string `json:"display_column"`
}

// TypeOptionsPayload carries optional physical sizing.
type TypeOptionsPayload struct {
	Length    int `json:"length"`
	Precision int `json:"precision"`
	Scale     int `json:"scale"`
}

// ColumnPayload is one declared column in a table creation or alteration
// request. Semantic validation (type/view/editor compatibility) happens
// past the binding layer.
type ColumnPayload struct {
	Name            string                  `json:"name" binding:"required"`
	DataType        string                  `json:"data_type" binding:"required"`
	DataTypeOptions *TypeOptionsPayload     `json:"data_type_options"`
	Nullable        bool                    `json:"nullable"`
	Default         *string                 `json:"default"`
	ViewType        string                  `json:"view_type" binding:"required"`
	ViewEditor      string                  `json:"view_editor" binding:"required"`
	IsRelation      bool                    `json:"is_relation"`
	RelationSetting *RelationSettingPayload `json:"relation_setting"`
}

// CreateTableRequest defines the structure for the table creation body
type CreateTableRequest struct {
	Slug        string          `json:"slug" binding:"required"`
	Label       string          `json:"label" binding:"required"`
	Description string          `json:"description"`
	Columns     []ColumnPayload `json:"columns" binding:"required,min=1,dive"`
}

// AlterTableRequest carries the full new column list; the diff against
// the stored list is computed server-side.
type AlterTableRequest struct {
	Columns []ColumnPayload `json:"columns" binding:"required,min=1,dive"`
}

// ToDomain converts a wire column to its domain form.
func (p *ColumnPayload) ToDomain() domain.ColumnDefinition {
	col := domain.ColumnDefinition{
		Name:       p.Name,
		DataType:   p.DataType,
		Nullable:   p.Nullable,
		Default:    p.Default,
		ViewType:   p.ViewType,
		ViewEditor: p.ViewEditor,
		IsRelation: p.IsRelation,
	}
	if p.DataTypeOptions != nil {
		col.DataTypeOptions = &domain.TypeOptions{
			Length:    p.DataTypeOptions.Length,
			Precision: p.DataTypeOptions.Precision,
			Scale:     p.DataTypeOptions.Scale,
		}
	}
	if p.RelationSetting != nil {
		col.RelationSetting = &domain.RelationSetting{
			TargetTable:   p.RelationSetting.TargetTable,
			TargetKey:     p.RelationSetting.TargetKey,
			DisplayColumn: p.RelationSetting.DisplayColumn,
		}
	}
	return col
}

// ColumnsToDomain converts a full wire column list.
func ColumnsToDomain(payloads []ColumnPayload) []domain.ColumnDefinition {
	cols := make([]domain.ColumnDefinition, len(payloads))
	for i := range payloads {
		cols[i] = payloads[i].ToDomain()
	}
	return cols
}
