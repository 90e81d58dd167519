package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSaveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Entry{
		ID:          "req-1",
		Question:    "How many customers?",
		SQL:         "SELECT count(*) FROM analytics.customers",
		Analysis:    "There are 42 customers.",
		RowCount:    1,
		ExecutionMS: 120,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	second := Entry{
		ID:        "req-2",
		Question:  "Revenue by region?",
		SQL:       "SELECT region, sum(total) FROM analytics.orders GROUP BY region",
		RowCount:  4,
		CreatedAt: time.Now(),
	}

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "req-2", entries[0].ID)
	assert.Equal(t, "req-1", entries[1].ID)
	assert.Equal(t, "There are 42 customers.", entries[1].Analysis)
	assert.Equal(t, int64(120), entries[1].ExecutionMS)
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, Entry{
			ID:        string(rune('a' + i)),
			Question:  "q",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Entry{ID: "req-1", Question: "q", CreatedAt: time.Now()}))
	require.NoError(t, store.Delete(ctx, "req-1"))

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Delete(ctx, "req-1"))
}

func TestDuplicateIDRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := Entry{ID: "req-1", Question: "q", CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, entry))

	err := store.Save(ctx, entry)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestFromState(t *testing.T) {
	state := &workflow.State{
		RequestID:     "req-9",
		Question:      "How many orders?",
		GeneratedSQL:  "SELECT count(*) FROM analytics.orders",
		Analysis:      "There are 7 orders.",
		QueryResults:  [][]any{{int64(7)}},
		ExecutionTime: 250 * time.Millisecond,
		Timestamp:     time.Now(),
	}

	entry := FromState(state)
	assert.Equal(t, "req-9", entry.ID)
	assert.Equal(t, 1, entry.RowCount)
	assert.Equal(t, int64(250), entry.ExecutionMS)
	assert.Empty(t, entry.Error)
}
