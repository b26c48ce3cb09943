// internal/core/columns.go
package core

import (
	"strings"

	"github.com/quasarhq/quasar-backend/internal/domain"
)

// ParsedColumn classification.
const (
	ColumnStandard = "standard"
	ColumnRelation = "relation"
	ColumnJSONPath = "json_path"
)

// ParsedColumn is the per-request resolution of one requested column
// spec against the table's declared schema. It lives only for the
// duration of one query compile.
type ParsedColumn struct {
	// Spec is the original requested identifier ("owner.department.name").
	Spec string
	// Base is the resolved base column ("owner").
	Base string
	// Alias is the output name, always the original spec.
	Alias string
	// Kind is one of ColumnStandard, ColumnRelation, ColumnJSONPath.
	Kind string
	// Path holds the traversal segments after the base, for relation and
	// json-path columns.
	Path []string
	// Relation is the declared relation setting for relation columns,
	// with DisplayColumn resolved from the path when one was given.
	Relation *domain.RelationSetting
}

// ParseColumns resolves the requested column identifiers against the
// schema. System columns always come first, then caller-mandated
// columns (a view's grouping column, say), then the request's own, all
// de-duplicated preserving first-seen order. A "*" request expands to
// every declared plus system column and skips further parsing.
//
// A dotted identifier whose base is a declared relation column becomes
// a relation traversal; any other dotted identifier becomes a json-path
// traversal. An unknown plain base is passed through untouched and will
// fail at query execution; the parser is deliberately schema-light.
func ParseColumns(requested []string, schema *domain.TableSchema, mandatory ...string) []ParsedColumn {
	for _, spec := range requested {
		if spec == "*" {
			return expandWildcard(schema)
		}
	}

	parsed := make([]ParsedColumn, 0, len(SystemColumns)+len(mandatory)+len(requested))
	seen := make(map[string]bool)

	appendSpec := func(spec string) {
		spec = strings.TrimSpace(spec)
		if spec == "" || seen[spec] {
			return
		}
		seen[spec] = true
		parsed = append(parsed, parseOne(spec, schema))
	}

	for _, sys := range SystemColumns {
		appendSpec(sys)
	}
	for _, spec := range mandatory {
		appendSpec(spec)
	}
	for _, spec := range requested {
		appendSpec(spec)
	}
	return parsed
}

func expandWildcard(schema *domain.TableSchema) []ParsedColumn {
	parsed := make([]ParsedColumn, 0, len(SystemColumns)+len(schema.Columns))
	seen := make(map[string]bool)
	for _, sys := range SystemColumns {
		seen[sys] = true
		parsed = append(parsed, ParsedColumn{Spec: sys, Base: sys, Alias: sys, Kind: ColumnStandard})
	}
	for i := range schema.Columns {
		name := schema.Columns[i].Name
		if seen[name] {
			continue
		}
		seen[name] = true
		parsed = append(parsed, ParsedColumn{Spec: name, Base: name, Alias: name, Kind: ColumnStandard})
	}
	return parsed
}

func parseOne(spec string, schema *domain.TableSchema) ParsedColumn {
	dot := strings.Index(spec, ".")
	if dot < 0 {
		return ParsedColumn{Spec: spec, Base: spec, Alias: spec, Kind: ColumnStandard}
	}

	base := spec[:dot]
	path := strings.Split(spec[dot+1:], ".")

	if col := schema.Column(base); col != nil && col.IsRelation && col.RelationSetting != nil {
		setting := *col.RelationSetting
		// The path overrides the configured display field; an empty path
		// falls back to it.
		if len(path) > 0 && path[0] != "" {
			setting.DisplayColumn = path[len(path)-1]
		}
		return ParsedColumn{
			Spec:     spec,
			Base:     base,
			Alias:    spec,
			Kind:     ColumnRelation,
			Path:     path,
			Relation: &setting,
		}
	}

	return ParsedColumn{Spec: spec, Base: base, Alias: spec, Kind: ColumnJSONPath, Path: path}
}
