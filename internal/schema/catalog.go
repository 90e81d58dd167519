// Package schema loads warehouse catalog metadata and renders it into
// embeddable documents for retrieval.
package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/relationship"
)

// Column is one catalog column with its type and free-text comment.
type Column struct {
	Name    string
	Type    string
	Comment string
}

// Catalog is the loaded metadata for one schema: tables with their
// columns, table comments, and the merged relationship hints.
type Catalog struct {
	Schema        string
	Tables        map[string][]Column
	TableComments map[string]string
	TableOrder    []string
	Relationships []relationship.Relationship
	Hints         map[string][]string
}

// QueryRunner executes read-only SQL against the warehouse.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) ([][]any, error)
}

const columnCatalogQuery = `
SELECT
    c.table_name,
    c.column_name,
    c.data_type,
    pgd.description
FROM information_schema.columns c
LEFT JOIN pg_catalog.pg_stat_all_tables st
    ON st.schemaname = c.table_schema AND st.relname = c.table_name
LEFT JOIN pg_catalog.pg_description pgd
    ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
WHERE c.table_schema = '%s'
ORDER BY c.table_name, c.ordinal_position`

const tableCommentQuery = `
SELECT st.relname, obj_description(st.relid)
FROM pg_catalog.pg_stat_all_tables st
WHERE st.schemaname = '%s'`

// LoadCatalog reads the schema's tables, columns, and comments from the
// warehouse, then reconciles relationships from constraints, comment
// tags, and the YAML overlay.
func LoadCatalog(ctx context.Context, runner QueryRunner, overlay *relationship.Store, schemaName string) (*Catalog, error) {
	rows, err := runner.RunQuery(ctx, fmt.Sprintf(columnCatalogQuery, schemaName))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to load columns for schema %q", schemaName)
	}

	if len(rows) == 0 {
		return nil, errors.Newf(errors.ErrTypeDatabase, "schema %q has no tables", schemaName).
			WithSuggestion("Check ANALYST_WAREHOUSE_SCHEMA points at a populated schema")
	}

	catalog := &Catalog{
		Schema:        schemaName,
		Tables:        make(map[string][]Column),
		TableComments: make(map[string]string),
	}

	var annotations []relationship.ColumnComment

	for _, row := range rows {
		if len(row) < 4 {
			continue
		}

		table := asString(row[0])
		col := Column{
			Name:    asString(row[1]),
			Type:    asString(row[2]),
			Comment: asString(row[3]),
		}

		if _, seen := catalog.Tables[table]; !seen {
			catalog.TableOrder = append(catalog.TableOrder, table)
		}

		catalog.Tables[table] = append(catalog.Tables[table], col)

		if col.Comment != "" {
			annotations = append(annotations, relationship.ColumnComment{
				Table:   table,
				Column:  col.Name,
				Comment: col.Comment,
			})
		}
	}

	sort.Strings(catalog.TableOrder)

	commentRows, err := runner.RunQuery(ctx, fmt.Sprintf(tableCommentQuery, schemaName))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to load table comments for schema %q", schemaName)
	}

	for _, row := range commentRows {
		if len(row) < 2 {
			continue
		}

		if comment := asString(row[1]); comment != "" {
			catalog.TableComments[asString(row[0])] = comment
		}
	}

	constraintRels, err := relationship.FromConstraints(ctx, runner, schemaName)
	if err != nil {
		return nil, err
	}

	commentRels := relationship.FromComments(annotations)

	var overlayRels []relationship.Relationship
	if overlay != nil {
		overlayRels, err = overlay.List(schemaName)
		if err != nil {
			return nil, err
		}
	}

	catalog.Relationships = relationship.Merge(constraintRels, commentRels, overlayRels)
	catalog.Hints = relationship.BuildMap(schemaName, catalog.Relationships)

	return catalog, nil
}

// Columns returns the column names for a table in catalog order.
func (c *Catalog) Columns(table string) []string {
	cols := c.Tables[table]
	names := make([]string, len(cols))

	for i, col := range cols {
		names[i] = col.Name
	}

	return names
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
