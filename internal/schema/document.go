package schema

import (
	"fmt"
	"strings"
)

// GlossaryStatus describes how much a schema's column naming can be
// trusted on its own versus needing the comment glossary.
type GlossaryStatus string

const (
	// GlossaryDocumented means at least half the columns carry comments,
	// so retrieval can lean on descriptions.
	GlossaryDocumented GlossaryStatus = "documented"
	// GlossaryCryptic means column names look like terse abbreviations
	// and few comments exist to decode them.
	GlossaryCryptic GlossaryStatus = "cryptic"
	// GlossaryPlain means names are readable English without a glossary.
	GlossaryPlain GlossaryStatus = "plain"
)

// DetectGlossaryStatus classifies the schema's naming style. Comment
// coverage wins over the naming heuristic: a well-commented schema is
// "documented" even if its names are short.
func DetectGlossaryStatus(catalog *Catalog) GlossaryStatus {
	var total, commented, cryptic int

	for _, cols := range catalog.Tables {
		for _, col := range cols {
			total++

			if strings.TrimSpace(col.Comment) != "" {
				commented++
			}

			if looksCryptic(col.Name) {
				cryptic++
			}
		}
	}

	if total == 0 {
		return GlossaryPlain
	}

	if commented*2 >= total {
		return GlossaryDocumented
	}

	if cryptic*2 >= total {
		return GlossaryCryptic
	}

	return GlossaryPlain
}

// looksCryptic flags names built from short abbreviated fragments, e.g.
// "cust_ord_amt". Multi-part names whose parts average four characters
// or fewer rarely read as English words.
func looksCryptic(name string) bool {
	parts := strings.Split(strings.ToLower(name), "_")
	if len(parts) < 2 {
		return false
	}

	var totalLen int
	for _, p := range parts {
		totalLen += len(p)
	}

	return totalLen/len(parts) <= 4
}

// FormatTableDoc renders one table's embeddable document: schema-qualified
// name, table comment, column list with comments and types, and join hints.
func FormatTableDoc(catalog *Catalog, table string) string {
	return FormatTableDocColumns(catalog, table, nil)
}

// FormatTableDocColumns renders a table document restricted to the given
// column subset. A nil keep set includes every column.
func FormatTableDocColumns(catalog *Catalog, table string, keep map[string]bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Schema: %s, Table: %s.%s", catalog.Schema, catalog.Schema, table)

	if comment := catalog.TableComments[table]; comment != "" {
		fmt.Fprintf(&b, " (%s)", comment)
	}

	b.WriteString("\nColumns: ")

	parts := make([]string, 0, len(catalog.Tables[table]))
	for _, col := range catalog.Tables[table] {
		if keep != nil && !keep[col.Name] {
			continue
		}

		if col.Comment != "" {
			parts = append(parts, fmt.Sprintf("%s (%s, %s)", col.Name, col.Comment, col.Type))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", col.Name, col.Type))
		}
	}

	b.WriteString(strings.Join(parts, " | "))

	if hints := catalog.Hints[table]; len(hints) > 0 {
		b.WriteString("\nRelationships: ")
		b.WriteString(strings.Join(hints, "; "))
	}

	return b.String()
}

// FormatOverviewDoc renders the schema overview document. It is always
// retained in retrieved context because it carries the qualification
// instruction the generated SQL depends on.
func FormatOverviewDoc(catalog *Catalog) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Schema overview for %s.\nTables:\n", catalog.Schema)

	for _, table := range catalog.TableOrder {
		fmt.Fprintf(&b, "- %s.%s", catalog.Schema, table)

		if comment := catalog.TableComments[table]; comment != "" {
			fmt.Fprintf(&b, ": %s", comment)
		}

		b.WriteString("\n")
	}

	switch DetectGlossaryStatus(catalog) {
	case GlossaryCryptic:
		b.WriteString("Note: column names are abbreviated codes; rely on column descriptions, not name similarity.\n")
	case GlossaryDocumented:
		b.WriteString("Note: column descriptions are authoritative; prefer them over name similarity.\n")
	case GlossaryPlain:
	}

	b.WriteString("IMPORTANT: Always use schema-qualified table names (e.g. " +
		catalog.Schema + ".tablename) in SQL.")

	return b.String()
}
