// Package vector provides an in-process brute-force vector index over
// schema documents. The corpus is small (one document per table plus an
// overview), so exhaustive squared-L2 search beats any ANN structure here.
package vector

import (
	"sort"
	"sync"

	"github.com/nlquery/analyst/internal/errors"
)

// Document is an indexed entry: the text that was embedded plus metadata
// describing what it covers.
type Document struct {
	ID       string
	Text     string
	Table    string
	Kind     Kind
	Metadata map[string]string
}

// Kind distinguishes table documents from the schema overview document.
type Kind string

const (
	KindTable    Kind = "table"
	KindOverview Kind = "overview"
)

// Match is a search hit: the document and its squared-L2 distance to the
// query vector. Smaller is closer.
type Match struct {
	Document Document
	Distance float32
}

// Index holds documents and their embeddings and answers nearest-neighbor
// queries. Safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	documents  []Document
	vectors    [][]float32
}

// NewIndex returns an empty index. The dimensionality is fixed by the
// first vector added.
func NewIndex() *Index {
	return &Index{}
}

// Add appends a document with its embedding. All vectors must share the
// same dimensionality.
func (idx *Index) Add(doc Document, vector []float32) error {
	if len(vector) == 0 {
		return errors.New(errors.ErrTypeInternal, "cannot index an empty vector")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimensions == 0 {
		idx.dimensions = len(vector)
	} else if len(vector) != idx.dimensions {
		return errors.Newf(errors.ErrTypeInternal,
			"vector dimension mismatch: index holds %d-dimensional vectors, got %d",
			idx.dimensions, len(vector))
	}

	owned := make([]float32, len(vector))
	copy(owned, vector)

	idx.documents = append(idx.documents, doc)
	idx.vectors = append(idx.vectors, owned)

	return nil
}

// Search returns up to k matches ordered by ascending distance. Ties are
// broken by insertion order, which keeps results deterministic.
func (idx *Index) Search(query []float32, k int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// An empty index yields empty results, not an error; callers degrade
	// to an overview-free context.
	if len(idx.documents) == 0 {
		return nil, nil
	}

	if len(query) != idx.dimensions {
		return nil, errors.Newf(errors.ErrTypeRetrieval,
			"query dimension mismatch: index holds %d-dimensional vectors, got %d",
			idx.dimensions, len(query))
	}

	if k <= 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(idx.documents))
	for i, vec := range idx.vectors {
		matches = append(matches, Match{
			Document: idx.documents[i],
			Distance: SquaredL2(query, vec),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k < len(matches) {
		matches = matches[:k]
	}

	return matches, nil
}

// Reset drops all documents and vectors, returning the index to its
// freshly-constructed state.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.dimensions = 0
	idx.documents = nil
	idx.vectors = nil
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.documents)
}

// Documents returns a copy of the indexed documents in insertion order.
func (idx *Index) Documents() []Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Document, len(idx.documents))
	copy(out, idx.documents)

	return out
}

// SquaredL2 computes the squared Euclidean distance between two vectors
// of equal length. Skipping the square root preserves ordering and the
// relative-distance cutoff ratio applies identically.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum
}
