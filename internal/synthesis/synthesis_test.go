package synthesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/retrieval"
	"github.com/nlquery/analyst/internal/testutil"
	"github.com/nlquery/analyst/internal/vector"
)

func TestCheckBlocklist(t *testing.T) {
	tests := []struct {
		sql     string
		keyword string
		blocked bool
	}{
		{"SELECT * FROM analytics.orders", "", false},
		{"DROP TABLE analytics.orders", "DROP", true},
		{"delete from analytics.orders", "DELETE", true},
		{"SELECT updated_at FROM analytics.orders", "", false},
		{"SELECT * FROM analytics.orders WHERE note = 'insertion'", "", false},
		{"INSERT INTO analytics.orders VALUES (1)", "INSERT", true},
		{"SELECT 1; TRUNCATE analytics.orders", "TRUNCATE", true},
	}

	for _, tt := range tests {
		keyword, blocked := CheckBlocklist(tt.sql)
		assert.Equal(t, tt.blocked, blocked, tt.sql)
		assert.Equal(t, tt.keyword, keyword, tt.sql)
	}
}

func TestExtractAliases(t *testing.T) {
	sql := `SELECT o.order_id, c.full_name
FROM analytics.orders o
JOIN analytics.customers AS c ON o.customer_id = c.customer_id
WHERE o.order_total > 100`

	aliases := ExtractAliases(sql)
	assert.Equal(t, "orders", aliases["o"])
	assert.Equal(t, "customers", aliases["c"])
	assert.Equal(t, "orders", aliases["orders"])
}

func TestExtractAliasesKeywordNotAlias(t *testing.T) {
	aliases := ExtractAliases("SELECT count(*) FROM analytics.orders WHERE order_total > 0")
	assert.Equal(t, "orders", aliases["orders"])
	assert.NotContains(t, aliases, "where")
}

func whitelist() map[string][]string {
	return map[string][]string{
		"orders":    {"order_id", "customer_id", "order_total", "order_date"},
		"customers": {"customer_id", "full_name", "signup_date"},
	}
}

func TestValidateColumnsAccepts(t *testing.T) {
	sql := `SELECT o.order_total, c.full_name
FROM analytics.orders o
JOIN analytics.customers c ON o.customer_id = c.customer_id`

	assert.Empty(t, ValidateColumns(sql, whitelist()))
}

func TestValidateColumnsRejectsUnknownColumn(t *testing.T) {
	sql := "SELECT o.custid FROM analytics.orders o"

	errs := ValidateColumns(sql, whitelist())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Column 'custid' does not exist in table 'orders'")
	assert.Contains(t, errs[0], "Valid columns: customer_id, order_date, order_id, order_total")
}

func TestValidateColumnsIgnoresSchemaQualifiedTables(t *testing.T) {
	// "analytics.orders" is a table reference, not a column lookup.
	sql := "SELECT order_total FROM analytics.orders"
	assert.Empty(t, ValidateColumns(sql, whitelist()))
}

func TestValidateColumnsDeduplicates(t *testing.T) {
	sql := "SELECT o.custid, o.custid FROM analytics.orders o"
	assert.Len(t, ValidateColumns(sql, whitelist()), 1)
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced sql",
			raw:  "```sql\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "bare fences",
			raw:  "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "use database line stripped",
			raw:  "USE DATABASE analytics;\nSELECT 1",
			want: "SELECT 1",
		},
		{
			name: "plain response untouched",
			raw:  "  SELECT count(*) FROM analytics.orders  ",
			want: "SELECT count(*) FROM analytics.orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.raw))
		})
	}
}

func synthConfig() config.SynthesisConfig {
	return config.SynthesisConfig{MaxAttempts: 2, Temperature: 0.1, MaxTokens: 2048}
}

func testContext() *retrieval.Context {
	return &retrieval.Context{
		Documents: []vector.Document{
			{Text: "Schema: analytics, Table: analytics.orders\nColumns: order_id (integer) | customer_id (integer) | order_total (numeric)"},
		},
		Tables:    []string{"orders"},
		Whitelist: whitelist(),
	}
}

func TestGenerateAcceptsFirstAttempt(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions(
		"SELECT count(*) FROM analytics.orders"))
	synth := NewSynthesizer(provider, synthConfig())

	result, err := synth.Generate(context.Background(), "How many orders?", testContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM analytics.orders", result.SQL)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.ValidationErrors)
}

func TestGenerateRetriesWithFeedback(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions(
		"SELECT o.custid FROM analytics.orders o",
		"SELECT o.customer_id FROM analytics.orders o"))
	synth := NewSynthesizer(provider, synthConfig())

	result, err := synth.Generate(context.Background(), "Which customers ordered?", testContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.NotContains(t, result.SQL, "custid")

	// The corrective prompt names the bad column and the valid set.
	prompts := provider.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Column 'custid' does not exist in table 'orders'")
	assert.Contains(t, prompts[1], "only the listed valid columns")

	// Feedback that drove the accepted attempt is kept for diagnostics.
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0], "custid")
}

func TestGenerateBlockedNoRetry(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions(
		"DROP TABLE analytics.orders",
		"SELECT 1"))
	synth := NewSynthesizer(provider, synthConfig())

	_, err := synth.Generate(context.Background(), "drop it", testContext(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeGenerationBlocked))
	assert.Len(t, provider.Prompts(), 1, "a blocklist hit must not consume the retry budget")
}

func TestGenerateRejectedAfterBudget(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions(
		"SELECT o.custid FROM analytics.orders o",
		"SELECT o.custid FROM analytics.orders o"))
	synth := NewSynthesizer(provider, synthConfig())

	_, err := synth.Generate(context.Background(), "Which customers ordered?", testContext(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Len(t, provider.Prompts(), 2)
}
