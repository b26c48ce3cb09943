// internal/core/catalog_test.go
package core

import (
	"errors"
	"testing"
)

func TestAllowedViewTypesUnknown(t *testing.T) {
	if _, err := AllowedViewTypes("money"); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("AllowedViewTypes(money) error = %v; want ErrUnknownDataType", err)
	}
	if _, err := AllowedEditors("hologram"); !errors.Is(err, ErrUnknownViewType) {
		t.Errorf("AllowedEditors(hologram) error = %v; want ErrUnknownViewType", err)
	}
}

func TestCanMigrate(t *testing.T) {
	testCases := []struct {
		from string
		to   string
		want bool
	}{
		{TypeInt, TypeBigint, true},
		{TypeInt, TypeText, true},
		{TypeText, TypeVarchar, true},
		{TypeBoolean, TypeInt, true},
		{TypeJSON, TypeJSONB, true},
		{TypeText, TypeInt, false},
		{TypeBigint, TypeInt, false}, // narrowing is not allowed
		{TypeBoolean, TypeDate, false},
		{TypeUUID, TypeInt, false},
		{"money", TypeText, false}, // unknown source never migrates
	}

	for _, tc := range testCases {
		if got := CanMigrate(tc.from, tc.to); got != tc.want {
			t.Errorf("CanMigrate(%s, %s) = %v; want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTypePredicates(t *testing.T) {
	if !IsTextType(TypeVarchar) || IsTextType(TypeInt) {
		t.Error("IsTextType misclassified varchar or int")
	}
	if !IsNumericType(TypeDecimal) || IsNumericType(TypeText) {
		t.Error("IsNumericType misclassified decimal or text")
	}
	if !IsDateType(TypeTimestamptz) || IsDateType(TypeTime) {
		t.Error("IsDateType misclassified timestamptz or time")
	}
	if !IsJSONType(TypeJSONB) || IsJSONType(TypeText) {
		t.Error("IsJSONType misclassified jsonb or text")
	}
}
