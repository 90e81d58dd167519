package synthesis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// blocklistPattern matches mutating SQL keywords as whole words. A hit
// is a hard security boundary: the statement is rejected with no retry.
var blocklistPattern = regexp.MustCompile(`(?i)\b(DROP|DELETE|TRUNCATE|ALTER|CREATE|INSERT|UPDATE|GRANT|REVOKE|MERGE)\b`)

// CheckBlocklist reports whether the statement contains a mutating
// keyword, and which one matched.
func CheckBlocklist(sql string) (string, bool) {
	match := blocklistPattern.FindStringSubmatch(sql)
	if match == nil {
		return "", false
	}

	return strings.ToUpper(match[1]), true
}

var (
	// fromJoinPattern finds "FROM schema.table [AS] alias" and
	// "JOIN schema.table [AS] alias" clauses.
	fromJoinPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_]\w*)\.([a-zA-Z_]\w*)(?:\s+(?:AS\s+)?([a-zA-Z_]\w*))?`)
	// columnRefPattern finds qualified identifier pairs like "o.total".
	columnRefPattern = regexp.MustCompile(`\b([a-zA-Z_]\w*)\.([a-zA-Z_]\w*)\b`)
)

// reservedAfterTable are keywords that can directly follow a table name
// and must not be mistaken for an alias.
var reservedAfterTable = map[string]bool{
	"where": true, "on": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "join": true, "left": true, "right": true,
	"inner": true, "outer": true, "full": true, "cross": true, "union": true,
	"select": true, "as": true, "using": true, "set": true,
}

// ExtractAliases builds the alias→table map from FROM/JOIN clauses. The
// bare table name always maps to itself, so "orders.order_id" resolves
// even without an alias.
func ExtractAliases(sql string) map[string]string {
	aliases := make(map[string]string)

	for _, m := range fromJoinPattern.FindAllStringSubmatch(sql, -1) {
		table := strings.ToLower(m[2])
		aliases[table] = table

		if alias := strings.ToLower(m[3]); alias != "" && !reservedAfterTable[alias] {
			aliases[alias] = table
		}
	}

	return aliases
}

// ValidateColumns checks every alias.column reference in the statement
// against the per-table whitelist. Pattern matching, not parsing: an
// unresolvable alias is skipped rather than flagged, so the check is a
// safety net with no false positives on unusual formatting.
func ValidateColumns(sql string, whitelist map[string][]string) []string {
	aliases := ExtractAliases(sql)

	lowered := make(map[string]map[string]bool, len(whitelist))
	for table, cols := range whitelist {
		set := make(map[string]bool, len(cols))
		for _, c := range cols {
			set[strings.ToLower(c)] = true
		}

		lowered[strings.ToLower(table)] = set
	}

	var errs []string

	seen := make(map[string]bool)

	for _, m := range columnRefPattern.FindAllStringSubmatch(sql, -1) {
		qualifier := strings.ToLower(m[1])
		column := strings.ToLower(m[2])

		// schema.table references are table lookups, not column ones.
		if _, isTable := lowered[column]; isTable {
			if _, qualifierIsAlias := aliases[qualifier]; !qualifierIsAlias {
				continue
			}
		}

		table, ok := aliases[qualifier]
		if !ok {
			continue
		}

		valid, known := lowered[table]
		if !known {
			continue
		}

		if valid[column] {
			continue
		}

		key := qualifier + "." + column
		if seen[key] {
			continue
		}
		seen[key] = true

		errs = append(errs, fmt.Sprintf("Column '%s' does not exist in table '%s'. Valid columns: %s",
			column, table, strings.Join(sortedLower(whitelist[findOriginalTable(whitelist, table)]), ", ")))
	}

	return errs
}

func findOriginalTable(whitelist map[string][]string, lower string) string {
	for table := range whitelist {
		if strings.ToLower(table) == lower {
			return table
		}
	}

	return lower
}

func sortedLower(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToLower(c)
	}

	sort.Strings(out)

	return out
}
