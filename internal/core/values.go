// internal/core/values.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// ErrTypeMismatch marks every value-coercion failure so callers can
// classify them without string matching.
var ErrTypeMismatch = errors.New("type mismatch")

// Accepted layouts for temporal values arriving as JSON strings.
var (
	dateLayouts = []string{"2006-01-02"}
	timeLayouts = []string{"15:04:05", "15:04"}
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
)

// CoerceValue converts a raw JSON-decoded value into the representation
// bound for the column's declared data type. Payloads never reach the
// repo layer as an untyped bag: every value passes through here first,
// and a failure is a validation error naming the column.
func CoerceValue(col *domain.ColumnDefinition, raw any) (any, error) {
	if raw == nil {
		if !col.Nullable && col.Default == nil {
			return nil, fmt.Errorf("%w: column %q is not nullable", ErrTypeMismatch, col.Name)
		}
		return nil, nil
	}

	switch col.DataType {
	case TypeText, TypeVarchar, TypeChar:
		s, ok := raw.(string)
		if !ok {
			return nil, typeError(col, "string", raw)
		}
		if col.DataType != TypeText && col.DataTypeOptions != nil && col.DataTypeOptions.Length > 0 && len(s) > col.DataTypeOptions.Length {
			return nil, fmt.Errorf("%w: value for column %q exceeds declared length %d", ErrTypeMismatch, col.Name, col.DataTypeOptions.Length)
		}
		return s, nil

	case TypeInt, TypeBigint:
		switch v := raw.(type) {
		case float64:
			if math.Floor(v) != v {
				return nil, typeError(col, "integer", raw)
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
		return nil, typeError(col, "integer", raw)

	case TypeDecimal, TypeFloat, TypeDouble:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, typeError(col, "number", raw)

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case float64:
			if v == 0 || v == 1 {
				return v == 1, nil
			}
		}
		return nil, typeError(col, "boolean", raw)

	case TypeDate:
		return coerceTemporal(col, raw, dateLayouts)
	case TypeTime:
		return coerceTemporal(col, raw, timeLayouts)
	case TypeTimestamp, TypeTimestamptz:
		return coerceTemporal(col, raw, timestampLayouts)

	case TypeJSON, TypeJSONB:
		switch raw.(type) {
		case map[string]any, []any, string, float64, bool:
			encoded, err := json.Marshal(raw)
			if err != nil {
				return nil, fmt.Errorf("column %q: cannot encode json value: %w", col.Name, err)
			}
			return string(encoded), nil
		}
		return nil, typeError(col, "json", raw)

	case TypeUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, typeError(col, "uuid string", raw)
		}
		parsed, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: invalid uuid %q", ErrTypeMismatch, col.Name, s)
		}
		return parsed.String(), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, col.DataType)
}

func coerceTemporal(col *domain.ColumnDefinition, raw any, layouts []string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeError(col, "date/time string", raw)
	}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: column %q: %q does not match any accepted date/time layout", ErrTypeMismatch, col.Name, s)
}

func typeError(col *domain.ColumnDefinition, want string, got any) error {
	return fmt.Errorf("%w: invalid value for column %q: expected %s compatible with %s, got %T", ErrTypeMismatch, col.Name, want, col.DataType, got)
}
