package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/schema"
	"github.com/nlquery/analyst/internal/testutil"
	"github.com/nlquery/analyst/internal/vector"
)

func retrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:              8,
		DistanceRatio:     1.15,
		SmallSchemaTables: 5,
		ColumnPruneAbove:  8,
		ColumnKeepMin:     5,
		ColumnKeepMax:     10,
		ExampleTopK:       3,
	}
}

func indexedRetriever(t *testing.T, provider *testutil.MockProvider) *Retriever {
	t.Helper()

	indexer := schema.NewIndexer(testutil.OrdersSchemaRunner(), nil, provider, "analytics")
	require.NoError(t, indexer.Reindex(context.Background()))

	return NewRetriever(indexer, provider, retrievalConfig())
}

func TestFilterByRelativeDistance(t *testing.T) {
	matches := []vector.Match{
		{Document: vector.Document{ID: "a"}, Distance: 1.0},
		{Document: vector.Document{ID: "b"}, Distance: 1.1},
		{Document: vector.Document{ID: "c"}, Distance: 1.3},
		{Document: vector.Document{ID: "d"}, Distance: 5.0},
	}

	kept := FilterByRelativeDistance(matches, 1.15)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Document.ID)
	assert.Equal(t, "b", kept[1].Document.ID)
}

func TestFilterByRelativeDistanceKeepsOverview(t *testing.T) {
	matches := []vector.Match{
		{Document: vector.Document{ID: "a"}, Distance: 1.0},
		{Document: vector.Document{ID: "overview", Kind: vector.KindOverview}, Distance: 9.0},
	}

	kept := FilterByRelativeDistance(matches, 1.15)
	require.Len(t, kept, 2)
}

func TestRetrieveSmallSchemaUsesTablePass(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("customers"))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "How many customers are there?", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"customers"}, result.Tables)

	prompts := provider.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "How many customers are there?")
	assert.Contains(t, prompts[0], "- orders: Customer orders")
}

func TestRetrieveTablePassFailureKeepsAll(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompleteFunc(
		func(context.Context, string, float64, int) (string, error) {
			return "", fmt.Errorf("model unavailable")
		}))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "total revenue", nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"customers", "orders", "order_lines"}, result.Tables)
}

func TestRetrieveTablePassEmptyResponseKeepsAll(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("none of these match"))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "total revenue", nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"customers", "orders", "order_lines"}, result.Tables)
}

func TestRetrieveOverviewAlwaysLast(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("orders"))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "total revenue", nil)
	require.NoError(t, err)

	require.NotEmpty(t, result.Documents)
	last := result.Documents[len(result.Documents)-1]
	assert.Equal(t, vector.KindOverview, last.Kind)
	assert.Contains(t, last.Text, "IMPORTANT: Always use schema-qualified table names")
}

func TestRetrieveWhitelistIsUnpruned(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("customers"))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "How many customers are there?", nil)
	require.NoError(t, err)

	// Even tables dropped from the context keep their full column set in
	// the validation whitelist.
	assert.Len(t, result.Whitelist["order_lines"], 10)
	assert.Contains(t, result.Whitelist["orders"], "order_total")
}

func TestRetrievePrunesWideTables(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("order_lines"))
	retriever := indexedRetriever(t, provider)

	result, err := retriever.Retrieve(context.Background(), "units sold by region", nil)
	require.NoError(t, err)

	require.Equal(t, []string{"order_lines"}, result.Tables)
	doc := result.Documents[0]

	// Key-like columns survive pruning no matter how they score.
	assert.Contains(t, doc.Text, "line_id")
	assert.Contains(t, doc.Text, "order_id")

	pruned := strings.Count(doc.Text, " | ") + 1
	assert.Less(t, pruned, 10, "wide table should lose columns in the prompt context")
}

func TestRetrieveKeepsExampleColumns(t *testing.T) {
	provider := testutil.NewMockProvider(testutil.WithCompletions("order_lines"))
	retriever := indexedRetriever(t, provider)

	exampleColumns := examples.ReferencedColumns([]examples.Example{
		{SQL: "SELECT return_flag, count(*) FROM analytics.order_lines GROUP BY return_flag"},
	})

	result, err := retriever.Retrieve(context.Background(), "units sold by region", exampleColumns)
	require.NoError(t, err)

	assert.Contains(t, result.Documents[0].Text, "return_flag")
}

func TestSelectorRanksByDistance(t *testing.T) {
	vectors := map[string][]float32{
		"how many customers":  {1, 0},
		"revenue by region":   {0, 1},
		"orders per customer": {0.9, 0.1},
	}
	provider := testutil.NewMockProvider(testutil.WithEmbedFunc(
		func(_ context.Context, text string) ([]float32, error) {
			if v, ok := vectors[text]; ok {
				return v, nil
			}

			return []float32{0.5, 0.5}, nil
		}))

	candidates := []examples.Example{
		{Question: "revenue by region", SQL: "SELECT 1"},
		{Question: "how many customers", SQL: "SELECT 2"},
		{Question: "orders per customer", SQL: "SELECT 3"},
	}

	selector := NewSelector(provider, 2)

	selected, err := selector.Select(context.Background(), []float32{1, 0}, candidates)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "how many customers", selected[0].Question)
	assert.Equal(t, "orders per customer", selected[1].Question)
}

func TestSelectorEmptyCandidates(t *testing.T) {
	selector := NewSelector(testutil.NewMockProvider(), 3)

	selected, err := selector.Select(context.Background(), []float32{1, 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, selected)
}
