// Package sqlscan extracts table references from view SQL. It is a
// best-effort token scan over FROM and JOIN clauses, not a SQL parser; the
// migration analyzer's conservative fallback bounds the damage of anything it
// misses.
package sqlscan

import (
	"regexp"
	"strings"
)

// tableRef matches FROM/JOIN followed by an optional schema prefix (quoted or
// unquoted) and a quoted or unquoted table identifier.
var tableRef = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+(?:(?:"([^"]+)"|([A-Za-z_]\w*))\.)?(?:"([^"]+)"|([A-Za-z_]\w*))`)

// falsePositives lists SQL keywords, set-returning functions and catalog
// names commonly mistaken for tables by the scan. Hand-maintained and
// incomplete by construction; a miss causes an unnecessary but safe view
// drop.
var falsePositives = map[string]struct{}{
	"lateral":              {},
	"ts_stat":              {},
	"generate_series":      {},
	"unnest":               {},
	"json_each":            {},
	"jsonb_each":           {},
	"json_array_elements":  {},
	"jsonb_array_elements": {},
	"information_schema":   {},
	"pg_catalog":           {},
	"select":               {},
	"where":                {},
	"group":                {},
	"order":                {},
	"having":               {},
	"limit":                {},
	"offset":               {},
	"union":                {},
	"intersect":            {},
	"except":               {},
	"values":               {},
	"dual":                 {},
}

// Ref is one FROM/JOIN table reference. Schema is empty when the reference is
// unqualified.
type Ref struct {
	Schema string
	Name   string
}

// Refs returns every table reference in FROM/JOIN clauses in sql, with any
// schema prefix preserved. Keyword matching is case-insensitive; the captured
// identifiers' case is preserved.
func Refs(sql string) []Ref {
	var refs []Ref
	for _, m := range tableRef.FindAllStringSubmatch(sql, -1) {
		schema := m[1]
		if schema == "" {
			schema = m[2]
		}
		name := m[3]
		if name == "" {
			name = m[4]
		}
		if _, skip := falsePositives[strings.ToLower(name)]; skip {
			continue
		}
		refs = append(refs, Ref{Schema: schema, Name: name})
	}
	return refs
}

// Tables returns the set of table names referenced by FROM/JOIN clauses in
// sql, without schema prefixes. Migration operations resolve to bare table
// names, so the analyzer matches on those.
func Tables(sql string) map[string]struct{} {
	tables := make(map[string]struct{})
	for _, r := range Refs(sql) {
		tables[r.Name] = struct{}{}
	}
	return tables
}
