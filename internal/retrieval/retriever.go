// Package retrieval turns a question into the minimal slice of schema
// knowledge the synthesizer needs: relevant table documents with pruned
// column lists, plus the full column whitelist used for validation.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/logging"
	"github.com/nlquery/analyst/internal/schema"
	"github.com/nlquery/analyst/internal/vector"
)

// Context is the retrieved schema knowledge for one question.
type Context struct {
	// Documents are the retained schema documents, column-pruned where
	// the table is wide, in relevance order with the overview last.
	Documents []vector.Document
	// Tables are the retained table names, excluding the overview.
	Tables []string
	// Whitelist maps every known table to its complete column set.
	// Validation consults this, never the pruned prompt context.
	Whitelist map[string][]string
	// QuestionEmbedding is reused by the example selector.
	QuestionEmbedding []float32
}

// Retriever runs vector search plus the table-selection and
// column-pruning passes over an indexed schema.
type Retriever struct {
	indexer  *schema.Indexer
	provider llm.Provider
	cfg      config.RetrievalConfig
	logger   *logging.Logger
}

// NewRetriever returns a retriever over the given indexer.
func NewRetriever(indexer *schema.Indexer, provider llm.Provider, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		indexer:  indexer,
		provider: provider,
		cfg:      cfg,
		logger:   logging.GetLogger().WithField("component", "retriever"),
	}
}

// Retrieve selects the schema documents relevant to the question.
// exampleColumns holds identifier tokens from the golden examples;
// columns named there always survive pruning.
func (r *Retriever) Retrieve(ctx context.Context, question string, exampleColumns map[string]struct{}) (*Context, error) {
	questionEmbedding, err := r.provider.Embed(ctx, question)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to embed question")
	}

	matches, err := r.indexer.Index().Search(questionEmbedding, r.cfg.TopK)
	if err != nil {
		return nil, err
	}

	tableCount := r.indexer.Index().Len() - 1 // exclude the overview document

	var kept []vector.Match
	if tableCount <= r.cfg.SmallSchemaTables {
		kept = r.selectTablesByLLM(ctx, question, matches)
	} else {
		kept = FilterByRelativeDistance(matches, r.cfg.DistanceRatio)
	}

	kept = r.ensureOverview(kept)

	catalog := r.indexer.Catalog()
	result := &Context{
		Whitelist:         r.indexer.Whitelist(),
		QuestionEmbedding: questionEmbedding,
	}

	// Keep table docs in relevance order, overview last.
	var overview *vector.Document

	for _, m := range kept {
		doc := m.Document
		if doc.Kind == vector.KindOverview {
			d := doc
			overview = &d

			continue
		}

		pruned, err := r.pruneColumns(ctx, catalog, doc, questionEmbedding, exampleColumns)
		if err != nil {
			return nil, err
		}

		result.Documents = append(result.Documents, pruned)
		result.Tables = append(result.Tables, doc.Table)
	}

	if overview != nil {
		result.Documents = append(result.Documents, *overview)
	}

	r.logger.WithFields(map[string]interface{}{
		"tables":   strings.Join(result.Tables, ","),
		"retained": len(result.Documents),
	}).Debug("Context retrieved")

	return result, nil
}

// FilterByRelativeDistance keeps matches whose distance is within
// ratio× the best distance. One dominant match yields a narrow context;
// a flat distance profile keeps the field wide.
func FilterByRelativeDistance(matches []vector.Match, ratio float64) []vector.Match {
	if len(matches) == 0 {
		return nil
	}

	cutoff := float32(float64(matches[0].Distance) * ratio)

	var kept []vector.Match
	for _, m := range matches {
		if m.Distance <= cutoff || m.Document.Kind == vector.KindOverview {
			kept = append(kept, m)
		}
	}

	return kept
}

// selectTablesByLLM asks the model to pick relevant tables by name and
// description alone. Small schemas fit in one prompt and the model
// filters better than a distance cutoff over a handful of documents. An
// empty or failed response keeps everything.
func (r *Retriever) selectTablesByLLM(ctx context.Context, question string, matches []vector.Match) []vector.Match {
	catalog := r.indexer.Catalog()
	if catalog == nil {
		return matches
	}

	var b strings.Builder

	b.WriteString("Given the question and the table list, answer with only the names of tables needed to answer it, one per line.\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nTables:\n")

	for _, table := range catalog.TableOrder {
		fmt.Fprintf(&b, "- %s", table)

		if comment := catalog.TableComments[table]; comment != "" {
			fmt.Fprintf(&b, ": %s", comment)
		}

		b.WriteString("\n")
	}

	response, err := r.provider.Complete(ctx, b.String(), 0, 256)
	if err != nil {
		r.logger.WithError(err).Warn("Table-selection pass failed, keeping all candidates")

		return matches
	}

	selected := parseTableNames(response, catalog.TableOrder)
	if len(selected) == 0 {
		return matches
	}

	var kept []vector.Match
	for _, m := range matches {
		if m.Document.Kind == vector.KindOverview || selected[strings.ToLower(m.Document.Table)] {
			kept = append(kept, m)
		}
	}

	if len(kept) == 0 {
		return matches
	}

	return kept
}

var tableTokenPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// parseTableNames extracts known table names from a free-form model
// response, tolerating bullets, numbering, and schema qualification.
func parseTableNames(response string, known []string) map[string]bool {
	knownSet := make(map[string]bool, len(known))
	for _, t := range known {
		knownSet[strings.ToLower(t)] = true
	}

	selected := make(map[string]bool)

	for _, tok := range tableTokenPattern.FindAllString(response, -1) {
		lower := strings.ToLower(tok)
		if knownSet[lower] {
			selected[lower] = true
		}
	}

	return selected
}

// ensureOverview appends the overview document at distance zero when the
// search did not already surface it.
func (r *Retriever) ensureOverview(matches []vector.Match) []vector.Match {
	for _, m := range matches {
		if m.Document.Kind == vector.KindOverview {
			return matches
		}
	}

	for _, doc := range r.indexer.Index().Documents() {
		if doc.Kind == vector.KindOverview {
			return append(matches, vector.Match{Document: doc, Distance: 0})
		}
	}

	return matches
}

// identifierFragments mark columns that must survive pruning regardless
// of semantic score: join correctness depends on key columns.
var identifierFragments = []string{"id", "key", "num"}

// pruneColumns narrows a wide table's document to the columns most
// relevant to the question, while unconditionally keeping key-like
// columns and columns referenced by golden examples. The keep budget is
// a quarter of the columns, clamped to the configured floor and cap.
func (r *Retriever) pruneColumns(ctx context.Context, catalog *schema.Catalog, doc vector.Document, questionEmbedding []float32, exampleColumns map[string]struct{}) (vector.Document, error) {
	if catalog == nil {
		return doc, nil
	}

	columns := catalog.Tables[doc.Table]
	if len(columns) <= r.cfg.ColumnPruneAbove {
		return doc, nil
	}

	type scored struct {
		name     string
		distance float32
	}

	ranked := make([]scored, 0, len(columns))

	for _, col := range columns {
		text := col.Name
		if col.Comment != "" {
			text = col.Name + ": " + col.Comment
		}

		embedding, err := r.provider.Embed(ctx, text)
		if err != nil {
			return doc, errors.Wrapf(err, errors.ErrTypeRetrieval,
				"failed to embed column %s.%s", doc.Table, col.Name)
		}

		ranked = append(ranked, scored{
			name:     col.Name,
			distance: vector.SquaredL2(questionEmbedding, embedding),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	budget := len(columns) / 4
	if budget < r.cfg.ColumnKeepMin {
		budget = r.cfg.ColumnKeepMin
	}

	if budget > r.cfg.ColumnKeepMax {
		budget = r.cfg.ColumnKeepMax
	}

	keep := make(map[string]bool, budget)
	for i := 0; i < budget && i < len(ranked); i++ {
		keep[ranked[i].name] = true
	}

	for _, col := range columns {
		lower := strings.ToLower(col.Name)

		for _, frag := range identifierFragments {
			if strings.Contains(lower, frag) {
				keep[col.Name] = true

				break
			}
		}

		if _, ok := exampleColumns[lower]; ok {
			keep[col.Name] = true
		}
	}

	doc.Text = schema.FormatTableDocColumns(catalog, doc.Table, keep)

	return doc, nil
}
