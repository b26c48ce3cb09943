// internal/core/catalog.go
package core

import (
	"errors"
	"fmt"
)

// Catalog errors
var (
	ErrUnknownDataType = errors.New("unknown data type")
	ErrUnknownViewType = errors.New("unknown view type")
)

// Logical data types for dynamic table columns.
const (
	TypeText        = "text"
	TypeVarchar     = "varchar"
	TypeChar        = "char"
	TypeInt         = "int"
	TypeBigint      = "bigint"
	TypeDecimal     = "decimal"
	TypeFloat       = "float"
	TypeDouble      = "double"
	TypeBoolean     = "boolean"
	TypeDate        = "date"
	TypeTime        = "time"
	TypeTimestamp   = "timestamp"
	TypeTimestamptz = "timestamptz"
	TypeJSON        = "json"
	TypeJSONB       = "jsonb"
	TypeUUID        = "uuid"
)

// UI view types.
const (
	ViewText        = "text"
	ViewNumber      = "number"
	ViewCheckbox    = "checkbox"
	ViewSelect      = "select"
	ViewMultiselect = "multiselect"
	ViewDate        = "date"
	ViewDatetime    = "datetime"
	ViewJSON        = "json"
	ViewRelation    = "relation"
)

// allowedViewTypes maps each logical data type to the view types a UI
// may render it with. Membership here is an invariant of every stored
// column definition.
var allowedViewTypes = map[string][]string{
	TypeText:        {ViewText, ViewSelect, ViewMultiselect, ViewRelation},
	TypeVarchar:     {ViewText, ViewSelect, ViewMultiselect, ViewRelation},
	TypeChar:        {ViewText, ViewSelect},
	TypeInt:         {ViewNumber, ViewSelect, ViewRelation},
	TypeBigint:      {ViewNumber, ViewSelect, ViewRelation},
	TypeDecimal:     {ViewNumber},
	TypeFloat:       {ViewNumber},
	TypeDouble:      {ViewNumber},
	TypeBoolean:     {ViewCheckbox},
	TypeDate:        {ViewDate},
	TypeTime:        {ViewText},
	TypeTimestamp:   {ViewDatetime, ViewDate},
	TypeTimestamptz: {ViewDatetime, ViewDate},
	TypeJSON:        {ViewJSON},
	TypeJSONB:       {ViewJSON},
	TypeUUID:        {ViewText, ViewRelation},
}

// allowedEditors maps each view type to the editors that may write it.
var allowedEditors = map[string][]string{
	ViewText:        {"input", "textarea"},
	ViewNumber:      {"input", "number"},
	ViewCheckbox:    {"checkbox"},
	ViewSelect:      {"select"},
	ViewMultiselect: {"multiselect"},
	ViewDate:        {"datepicker"},
	ViewDatetime:    {"datetimepicker", "datepicker"},
	ViewJSON:        {"jsoneditor", "textarea"},
	ViewRelation:    {"relationpicker"},
}

// migrationTargets lists, per data type, the types a column may be
// physically re-typed to. A retype outside this set is a documented
// no-op in the DDL synthesizer.
var migrationTargets = map[string][]string{
	TypeText:        {TypeVarchar},
	TypeVarchar:     {TypeText, TypeChar},
	TypeChar:        {TypeText, TypeVarchar},
	TypeInt:         {TypeBigint, TypeDecimal, TypeFloat, TypeDouble, TypeText},
	TypeBigint:      {TypeDecimal, TypeDouble, TypeText},
	TypeDecimal:     {TypeFloat, TypeDouble, TypeText},
	TypeFloat:       {TypeDouble, TypeDecimal},
	TypeDouble:      {TypeDecimal},
	TypeBoolean:     {TypeInt, TypeText},
	TypeDate:        {TypeTimestamp, TypeTimestamptz, TypeText},
	TypeTime:        {TypeText},
	TypeTimestamp:   {TypeTimestamptz, TypeDate, TypeText},
	TypeTimestamptz: {TypeTimestamp, TypeDate, TypeText},
	TypeJSON:        {TypeJSONB, TypeText},
	TypeJSONB:       {TypeJSON, TypeText},
	TypeUUID:        {TypeText},
}

// AllowedViewTypes returns the view types valid for a data type.
// Unknown data types are an error, never an empty default.
func AllowedViewTypes(dataType string) ([]string, error) {
	views, ok := allowedViewTypes[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dataType)
	}
	return views, nil
}

// AllowedEditors returns the editors valid for a view type.
func AllowedEditors(viewType string) ([]string, error) {
	editors, ok := allowedEditors[viewType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownViewType, viewType)
	}
	return editors, nil
}

// MigrationTargets returns the data types a column of the given type may
// be re-typed to.
func MigrationTargets(dataType string) ([]string, error) {
	targets, ok := migrationTargets[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dataType)
	}
	return targets, nil
}

// IsKnownDataType reports whether dataType is part of the fixed enumeration.
func IsKnownDataType(dataType string) bool {
	_, ok := allowedViewTypes[dataType]
	return ok
}

// CanMigrate reports whether a column of type from may be re-typed to.
func CanMigrate(from, to string) bool {
	for _, t := range migrationTargets[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTextType reports whether values of the type are free text, which is
// what the compiler's search clause and the facet generator key off.
func IsTextType(dataType string) bool {
	switch dataType {
	case TypeText, TypeVarchar, TypeChar:
		return true
	}
	return false
}

// IsNumericType reports whether the type aggregates as a number.
func IsNumericType(dataType string) bool {
	switch dataType {
	case TypeInt, TypeBigint, TypeDecimal, TypeFloat, TypeDouble:
		return true
	}
	return false
}

// IsDateType reports whether the type aggregates as a date range.
func IsDateType(dataType string) bool {
	switch dataType {
	case TypeDate, TypeTimestamp, TypeTimestamptz:
		return true
	}
	return false
}

// IsJSONType reports whether the type stores semi-structured values.
func IsJSONType(dataType string) bool {
	return dataType == TypeJSON || dataType == TypeJSONB
}
