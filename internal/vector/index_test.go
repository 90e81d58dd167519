package vector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAddAndSearch(t *testing.T) {
	idx := NewIndex()

	docs := []struct {
		id  string
		vec []float32
	}{
		{"orders", []float32{1, 0, 0}},
		{"customers", []float32{0, 1, 0}},
		{"products", []float32{0, 0, 1}},
		{"shipments", []float32{0.9, 0.1, 0}},
	}
	for _, d := range docs {
		require.NoError(t, idx.Add(Document{ID: d.id, Table: d.id, Kind: KindTable}, d.vec))
	}

	assert.Equal(t, 4, idx.Len())

	matches, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "orders", matches[0].Document.ID)
	assert.Equal(t, float32(0), matches[0].Distance)
	assert.Equal(t, "shipments", matches[1].Document.ID)
}

func TestIndexSearchKLargerThanCorpus(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Add(Document{ID: "only"}, []float32{1, 2}))

	matches, err := idx.Search([]float32{1, 2}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIndexSearchEmpty(t *testing.T) {
	idx := NewIndex()

	matches, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndexDimensionMismatch(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Add(Document{ID: "a"}, []float32{1, 2, 3}))

	err := idx.Add(Document{ID: "b"}, []float32{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")

	_, err = idx.Search([]float32{1, 2}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestIndexReset(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Add(Document{ID: "a"}, []float32{1, 2, 3}))
	require.NoError(t, idx.Add(Document{ID: "b"}, []float32{4, 5, 6}))

	idx.Reset()
	assert.Equal(t, 0, idx.Len())

	// Dimensionality resets too, so a differently-sized corpus can be loaded.
	require.NoError(t, idx.Add(Document{ID: "c"}, []float32{1, 2}))
	assert.Equal(t, 1, idx.Len())
}

func TestIndexDeterministicTieBreak(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Add(Document{ID: fmt.Sprintf("doc-%d", i)}, []float32{1, 1}))
	}

	matches, err := idx.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	for i, m := range matches {
		assert.Equal(t, fmt.Sprintf("doc-%d", i), m.Document.ID)
	}
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, float32(0), SquaredL2([]float32{1, 2}, []float32{1, 2}))
	assert.Equal(t, float32(25), SquaredL2([]float32{0, 0}, []float32{3, 4}))
}
