package testutil

import (
	"context"
	"strings"
	"sync"
)

// SchemaRunner serves canned catalog metadata for the queries the
// indexer issues, and delegates everything else to DataFunc. Tests get
// a working schema load without a live warehouse.
type SchemaRunner struct {
	Columns  [][]any
	Comments [][]any
	FKs      [][]any
	DataFunc func(ctx context.Context, query string) ([][]any, []string, error)

	mu      sync.Mutex
	queries []string
}

func (r *SchemaRunner) RunQuery(ctx context.Context, query string) ([][]any, error) {
	rows, _, err := r.RunQueryWithColumns(ctx, query)

	return rows, err
}

func (r *SchemaRunner) RunQueryWithColumns(ctx context.Context, query string) ([][]any, []string, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()

	switch {
	case strings.Contains(query, "FOREIGN KEY"):
		return r.FKs, nil, nil
	case strings.Contains(query, "obj_description"):
		return r.Comments, nil, nil
	case strings.Contains(query, "information_schema.columns"):
		return r.Columns, nil, nil
	default:
		if r.DataFunc == nil {
			return nil, nil, nil
		}

		return r.DataFunc(ctx, query)
	}
}

// Queries returns every statement seen, in call order.
func (r *SchemaRunner) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.queries))
	copy(out, r.queries)

	return out
}

// OrdersSchemaRunner returns a SchemaRunner describing a small retail
// schema: customers, orders, and a wide order_lines table.
func OrdersSchemaRunner() *SchemaRunner {
	return &SchemaRunner{
		Columns: [][]any{
			{"customers", "customer_id", "integer", "Unique customer identifier"},
			{"customers", "full_name", "character varying", "Customer display name"},
			{"customers", "signup_date", "date", "Date the customer registered"},
			{"orders", "order_id", "integer", "Unique order identifier"},
			{"orders", "customer_id", "integer", "Ordering customer [FK: customers.customer_id]"},
			{"orders", "order_total", "numeric", "Total order value in dollars"},
			{"orders", "order_date", "date", "Date the order was placed"},
			{"order_lines", "line_id", "integer", "Unique line identifier"},
			{"order_lines", "order_id", "integer", "Parent order [FK: orders.order_id]"},
			{"order_lines", "product_name", "character varying", "Product sold"},
			{"order_lines", "quantity", "integer", "Units sold"},
			{"order_lines", "unit_price", "numeric", "Price per unit"},
			{"order_lines", "discount_pct", "numeric", "Discount applied, percent"},
			{"order_lines", "tax_amount", "numeric", "Tax charged"},
			{"order_lines", "ship_region", "character varying", "Destination region"},
			{"order_lines", "warehouse_code", "character varying", "Fulfilling warehouse"},
			{"order_lines", "return_flag", "boolean", "Whether the line was returned"},
		},
		Comments: [][]any{
			{"customers", "Registered customers"},
			{"orders", "Customer orders"},
			{"order_lines", "Individual order line items"},
		},
		FKs: [][]any{
			{"orders", "customer_id", "customers", "customer_id"},
			{"order_lines", "order_id", "orders", "order_id"},
		},
	}
}
