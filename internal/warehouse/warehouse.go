// Package warehouse wraps the analytics database connection. Redshift
// speaks the postgres wire protocol, so lib/pq covers both it and plain
// PostgreSQL.
package warehouse

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/logging"
)

// Client executes read-only queries against the warehouse.
type Client struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *logging.Logger
}

// Connect opens and verifies a warehouse connection.
func Connect(ctx context.Context, cfg config.WarehouseConfig) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open warehouse connection")
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, errors.Wrapf(err, errors.ErrTypeDatabase,
			"failed to reach warehouse at %s:%d", cfg.Host, cfg.Port).
			WithSuggestion("Check ANALYST_WAREHOUSE_HOST and credentials").
			WithSuggestion("Verify the database accepts connections from this machine")
	}

	return &Client{
		db:      db,
		timeout: cfg.QueryTimeoutDuration(),
		logger:  logging.GetLogger().WithField("component", "warehouse"),
	}, nil
}

// RunQuery executes a statement and returns the rows as positional
// value tuples.
func (c *Client) RunQuery(ctx context.Context, query string) ([][]any, error) {
	rows, _, err := c.RunQueryWithColumns(ctx, query)

	return rows, err
}

// RunQueryWithColumns executes a statement and returns the rows along
// with the result column names, aligned positionally.
func (c *Client) RunQueryWithColumns(ctx context.Context, query string) ([][]any, []string, error) {
	queryCtx := ctx

	if c.timeout > 0 {
		var cancel context.CancelFunc

		queryCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	result, err := c.db.QueryxContext(queryCtx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "query failed")
	}
	defer result.Close()

	columns, err := result.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read result columns")
	}

	var out [][]any

	for result.Next() {
		row, err := result.SliceScan()
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan result row")
		}

		out = append(out, normalizeRow(row))
	}

	if err := result.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "result iteration failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"rows":        len(out),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Query executed")

	return out, columns, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}

	return c.db.Close()
}

// normalizeRow converts driver byte slices to strings so downstream
// formatting and JSON encoding see text, not base64.
func normalizeRow(row []any) []any {
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
		}
	}

	return row
}
