// Package relationship discovers, merges, and persists join metadata for
// a warehouse schema. Edges come from declared foreign-key constraints,
// from [FK: table.column] tags embedded in column comments, and from a
// user-maintained YAML overlay.
package relationship

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Origin records which metadata source produced a relationship.
type Origin string

const (
	OriginConstraint Origin = "fk_constraint"
	OriginComment    Origin = "comment_fk"
	OriginYAML       Origin = "yaml"
)

// Relationship is a directed join edge between two columns.
type Relationship struct {
	SourceTable  string `yaml:"source_table"`
	SourceColumn string `yaml:"source_column"`
	TargetTable  string `yaml:"target_table"`
	TargetColumn string `yaml:"target_column"`
	Description  string `yaml:"description,omitempty"`
	Origin       Origin `yaml:"-"`
}

// Key is the identity of a relationship: two edges with the same key
// describe the same join regardless of where they were discovered.
func (r Relationship) Key() string {
	return strings.ToLower(r.SourceTable) + "." + strings.ToLower(r.SourceColumn) +
		"->" + strings.ToLower(r.TargetTable) + "." + strings.ToLower(r.TargetColumn)
}

// fkTagPattern matches the inline foreign-key annotation embedded in
// column comments, e.g. "Customer reference [FK: customers.customer_id]".
var fkTagPattern = regexp.MustCompile(`\[FK:\s*(\w+)\.(\w+)\]`)

// ColumnComment is one annotated column handed to FromComments.
type ColumnComment struct {
	Table   string
	Column  string
	Comment string
}

// FromComments extracts relationships from [FK: table.column] tags in
// column comments. Comments without the tag are ignored.
func FromComments(annotations []ColumnComment) []Relationship {
	var rels []Relationship

	for _, a := range annotations {
		match := fkTagPattern.FindStringSubmatch(a.Comment)
		if match == nil {
			continue
		}

		rels = append(rels, Relationship{
			SourceTable:  a.Table,
			SourceColumn: a.Column,
			TargetTable:  match[1],
			TargetColumn: match[2],
			Description:  strings.TrimSpace(fkTagPattern.ReplaceAllString(a.Comment, "")),
			Origin:       OriginComment,
		})
	}

	return rels
}

// Merge deduplicates relationships from all sources. Groups must be
// passed in ascending priority order; when two edges share a key, the
// edge from the later group wins and its origin is kept. Output order
// follows first appearance of each key, so merging is deterministic.
func Merge(groups ...[]Relationship) []Relationship {
	byKey := make(map[string]int)

	var merged []Relationship

	for _, group := range groups {
		for _, rel := range group {
			key := rel.Key()
			if i, ok := byKey[key]; ok {
				merged[i] = rel
				continue
			}

			byKey[key] = len(merged)
			merged = append(merged, rel)
		}
	}

	return merged
}

// BuildMap renders per-table join hints from merged relationships.
// Forward edges appear under the source table, reverse edges under the
// target table, so either side of a join surfaces the hint.
func BuildMap(schema string, rels []Relationship) map[string][]string {
	hints := make(map[string][]string)

	for _, rel := range rels {
		forward := fmt.Sprintf("%s -> %s.%s.%s", rel.SourceColumn, schema, rel.TargetTable, rel.TargetColumn)
		if rel.Description != "" {
			forward += " (" + rel.Description + ")"
		}

		hints[rel.SourceTable] = append(hints[rel.SourceTable], forward)

		reverse := fmt.Sprintf("Referenced by %s.%s.%s", schema, rel.SourceTable, rel.SourceColumn)
		hints[rel.TargetTable] = append(hints[rel.TargetTable], reverse)
	}

	for table := range hints {
		sort.Strings(hints[table])
	}

	return hints
}
