package relationship

import (
	"context"
	"fmt"

	"github.com/nlquery/analyst/internal/errors"
)

// QueryRunner executes read-only SQL against the warehouse. Satisfied by
// the warehouse client.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) ([][]any, error)
}

const foreignKeyQuery = `
SELECT
    tc.table_name,
    kcu.column_name,
    ccu.table_name AS foreign_table_name,
    ccu.column_name AS foreign_column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
    AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
    ON ccu.constraint_name = tc.constraint_name
    AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
    AND tc.table_schema = '%s'
ORDER BY tc.table_name, kcu.column_name`

// FromConstraints loads relationships declared as foreign-key
// constraints in the given schema.
func FromConstraints(ctx context.Context, runner QueryRunner, schema string) ([]Relationship, error) {
	rows, err := runner.RunQuery(ctx, fmt.Sprintf(foreignKeyQuery, schema))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase,
			"failed to load foreign-key constraints for schema %q", schema)
	}

	var rels []Relationship

	for _, row := range rows {
		if len(row) < 4 {
			continue
		}

		rels = append(rels, Relationship{
			SourceTable:  asString(row[0]),
			SourceColumn: asString(row[1]),
			TargetTable:  asString(row[2]),
			TargetColumn: asString(row[3]),
			Origin:       OriginConstraint,
		})
	}

	return rels, nil
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
