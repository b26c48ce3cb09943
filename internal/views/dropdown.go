// internal/views/dropdown.go
package views

import "sort"

// DropdownOptions configures the dropdown transform.
type DropdownOptions struct {
	LabelColumn string `json:"label_column"`
	ValueColumn string `json:"value_column"`
	GroupColumn string `json:"group_column,omitempty"`
	SkipEmpty   bool   `json:"skip_empty,omitempty"` // drop rows with empty label or value
	Distinct    bool   `json:"distinct,omitempty"`   // deduplicate on (label, value)
	Limit       int    `json:"limit,omitempty"`
}

// DropdownOption is one selectable entry.
type DropdownOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Group string `json:"group,omitempty"`
}

// BuildDropdown maps records to dropdown options. Grouped or distinct
// output is sorted by group then label; the list is then truncated to
// the requested limit, reporting whether truncation occurred.
func BuildDropdown(records []map[string]any, opts DropdownOptions) ([]DropdownOption, bool) {
	options := make([]DropdownOption, 0, len(records))
	seen := make(map[[2]string]bool)

	for _, record := range records {
		option := DropdownOption{
			Label: stringify(record[opts.LabelColumn]),
			Value: stringify(record[opts.ValueColumn]),
		}
		if opts.GroupColumn != "" {
			option.Group = stringify(record[opts.GroupColumn])
		}

		if opts.SkipEmpty && (option.Label == "" || option.Value == "") {
			continue
		}
		if opts.Distinct {
			key := [2]string{option.Label, option.Value}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		options = append(options, option)
	}

	if opts.GroupColumn != "" || opts.Distinct {
		sort.SliceStable(options, func(i, j int) bool {
			if options[i].Group != options[j].Group {
				return options[i].Group < options[j].Group
			}
			return options[i].Label < options[j].Label
		})
	}

	truncated := false
	if opts.Limit > 0 && len(options) > opts.Limit {
		options = options[:opts.Limit]
		truncated = true
	}
	return options, truncated
}
