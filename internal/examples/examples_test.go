package examples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `schemas:
  analytics:
    - question: How many customers are there?
      sql: SELECT count(*) FROM analytics.customers
    - question: Revenue by region
      sql: SELECT region, sum(order_total) FROM analytics.orders GROUP BY region
      difficulty: hard
`

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "examples.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))

	return path
}

func TestStoreList(t *testing.T) {
	store := NewStore(writeSample(t))

	examples, err := store.List("analytics")
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "How many customers are there?", examples[0].Question)
	assert.Equal(t, DifficultyEasy, examples[0].Difficulty, "missing difficulty should be inferred")
	assert.Equal(t, DifficultyHard, examples[1].Difficulty, "explicit difficulty wins over inference")
}

func TestStoreListMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.yaml"))

	examples, err := store.List("analytics")
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestStoreListUnknownSchema(t *testing.T) {
	store := NewStore(writeSample(t))

	examples, err := store.List("staging")
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestClassifyDifficulty(t *testing.T) {
	tests := []struct {
		sql  string
		want Difficulty
	}{
		{"SELECT count(*) FROM analytics.orders", DifficultyEasy},
		{"SELECT region, sum(total) FROM analytics.orders GROUP BY region", DifficultyMedium},
		{"SELECT a.x FROM analytics.a JOIN analytics.b ON a.id = b.id", DifficultyMedium},
		{"SELECT x, rank() OVER (ORDER BY x) FROM analytics.t", DifficultyHard},
		{"SELECT x FROM analytics.t WHERE x > (SELECT avg(x) FROM analytics.t)", DifficultyHard},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDifficulty(tt.sql), tt.sql)
	}
}

func TestReferencedColumns(t *testing.T) {
	examples := []Example{
		{SQL: "SELECT Order_Total FROM analytics.orders WHERE region = 'west'"},
	}

	tokens := ReferencedColumns(examples)
	assert.Contains(t, tokens, "order_total")
	assert.Contains(t, tokens, "region")
	assert.NotContains(t, tokens, "west", "string literals are not identifiers")
}
