// Package narrate turns query results into a prose answer.
package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/logging"
)

// NoResultsMessage is returned verbatim when the query yields zero
// rows; no model call is made.
const NoResultsMessage = "No results found for this query."

// maxNarratedRows caps how many rows reach the narration prompt. The
// omitted count is noted so the summary can qualify its claims.
const maxNarratedRows = 20

// Narrator summarizes query results with a language model.
type Narrator struct {
	provider  llm.Provider
	maxTokens int
	logger    *logging.Logger
}

// NewNarrator returns a narrator using the given provider.
func NewNarrator(provider llm.Provider, maxTokens int) *Narrator {
	return &Narrator{
		provider:  provider,
		maxTokens: maxTokens,
		logger:    logging.GetLogger().WithField("component", "narrator"),
	}
}

// Narrate produces a structured prose summary of the results: a direct
// answer, key findings with concrete numbers, and notable trends.
func (n *Narrator) Narrate(ctx context.Context, question, sql string, columns []string, rows [][]any) (string, error) {
	if len(rows) == 0 {
		return NoResultsMessage, nil
	}

	summary, err := n.provider.Complete(ctx, buildNarrationPrompt(question, sql, columns, rows), 0.3, n.maxTokens)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeNarration, "failed to summarize query results")
	}

	return strings.TrimSpace(summary), nil
}

func buildNarrationPrompt(question, sql string, columns []string, rows [][]any) string {
	var b strings.Builder

	b.WriteString("Summarize these query results for a business user.\n")
	b.WriteString("Structure the answer as:\n")
	b.WriteString("1. A one-sentence direct answer to the question.\n")
	b.WriteString("2. 3-5 bullet key findings using concrete numbers from the rows.\n")
	b.WriteString("3. Notable trends or outliers, if any.\n\n")

	fmt.Fprintf(&b, "Question: %s\nSQL: %s\n\nResults", question, sql)

	shown := rows
	if len(shown) > maxNarratedRows {
		shown = shown[:maxNarratedRows]
		fmt.Fprintf(&b, " (first %d of %d rows, %d omitted)", maxNarratedRows, len(rows), len(rows)-maxNarratedRows)
	}

	b.WriteString(":\n")

	if len(columns) > 0 {
		b.WriteString(strings.Join(columns, " | "))
		b.WriteString("\n")
	}

	for _, row := range shown {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%v", v)
		}

		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}

	return b.String()
}
