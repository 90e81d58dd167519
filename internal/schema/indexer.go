package schema

import (
	"context"
	"sync"
	"time"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/logging"
	"github.com/nlquery/analyst/internal/relationship"
	"github.com/nlquery/analyst/internal/vector"
)

// Embedder produces a fixed-dimension embedding for a text string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer owns the schema's vector index and catalog. Reindex builds a
// complete replacement index and swaps it in atomically, so searches
// racing a rebuild see either the old index or the new one, never a
// half-populated state.
type Indexer struct {
	mu       sync.RWMutex
	runner   QueryRunner
	overlay  *relationship.Store
	embedder Embedder
	schema   string
	index    *vector.Index
	catalog  *Catalog
	logger   *logging.Logger
}

// NewIndexer returns an indexer for the given schema. The index starts
// empty; call Reindex before searching.
func NewIndexer(runner QueryRunner, overlay *relationship.Store, embedder Embedder, schemaName string) *Indexer {
	return &Indexer{
		runner:   runner,
		overlay:  overlay,
		embedder: embedder,
		schema:   schemaName,
		index:    vector.NewIndex(),
		logger:   logging.GetLogger().WithField("component", "indexer"),
	}
}

// Reindex reloads the catalog, renders one document per table plus the
// overview, embeds them, and swaps in the rebuilt index. Document order
// follows the sorted table order, so rebuilding from identical source
// data yields an identical index.
func (ix *Indexer) Reindex(ctx context.Context) error {
	start := time.Now()

	catalog, err := LoadCatalog(ctx, ix.runner, ix.overlay, ix.schema)
	if err != nil {
		return err
	}

	fresh := vector.NewIndex()

	for _, table := range catalog.TableOrder {
		text := FormatTableDoc(catalog, table)

		embedding, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeRetrieval, "failed to embed document for table %q", table)
		}

		doc := vector.Document{
			ID:    table,
			Text:  text,
			Table: table,
			Kind:  vector.KindTable,
			Metadata: map[string]string{
				"schema": catalog.Schema,
			},
		}
		if err := fresh.Add(doc, embedding); err != nil {
			return err
		}
	}

	overviewText := FormatOverviewDoc(catalog)

	overviewEmbedding, err := ix.embedder.Embed(ctx, overviewText)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeRetrieval, "failed to embed schema overview")
	}

	overviewDoc := vector.Document{
		ID:   "overview",
		Text: overviewText,
		Kind: vector.KindOverview,
		Metadata: map[string]string{
			"schema": catalog.Schema,
		},
	}
	if err := fresh.Add(overviewDoc, overviewEmbedding); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.index = fresh
	ix.catalog = catalog
	ix.mu.Unlock()

	ix.logger.WithFields(map[string]interface{}{
		"schema":      ix.schema,
		"tables":      len(catalog.TableOrder),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Schema index rebuilt")

	return nil
}

// Index returns the current vector index.
func (ix *Indexer) Index() *vector.Index {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.index
}

// Catalog returns the catalog loaded by the last Reindex, or nil if the
// index has never been built.
func (ix *Indexer) Catalog() *Catalog {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.catalog
}

// Whitelist returns every column name known for each table, independent
// of any pruning applied to prompt context. Validation treats this as
// the complete set of legal identifiers.
func (ix *Indexer) Whitelist() map[string][]string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.catalog == nil {
		return nil
	}

	out := make(map[string][]string, len(ix.catalog.Tables))
	for table := range ix.catalog.Tables {
		out[table] = ix.catalog.Columns(table)
	}

	return out
}
