// internal/views/views.go
//
// Pure reshaping of an enriched, flat row set into UI-oriented view
// structures. Nothing here touches the database: transformers consume
// the records the query pipeline produced and return new structures,
// leaving the input untouched.
package views

import (
	"fmt"
	"strconv"
	"time"
)

// Layouts accepted when a row value must be read as a point in time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// stringify renders a row value for grouping and labels. nil maps to "".
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// parseTime reads a row value as a time, reporting ok=false when it
// cannot be interpreted.
func parseTime(v any) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	case []byte:
		return parseTime(string(value))
	}
	return time.Time{}, false
}

// isEmpty reports whether a row value is nil or renders to "".
func isEmpty(v any) bool {
	return v == nil || stringify(v) == ""
}
