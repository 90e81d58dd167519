// Package workflow sequences retrieval, example selection, SQL
// synthesis, execution, and narration for one question, carrying a
// single state record through every stage.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/logging"
	"github.com/nlquery/analyst/internal/narrate"
	"github.com/nlquery/analyst/internal/retrieval"
	"github.com/nlquery/analyst/internal/schema"
	"github.com/nlquery/analyst/internal/synthesis"
)

// FriendlyErrorMessage is shown to end users for any fatal pipeline
// failure; the specific cause stays in State.Err for diagnostics.
const FriendlyErrorMessage = "I wasn't able to answer that question. Try rephrasing it, or ask about different data."

// State is the full record of one question's trip through the
// pipeline. Partial state survives failure so callers can diagnose
// which stage broke and with what inputs.
type State struct {
	RequestID           string
	Question            string
	Timestamp           time.Time
	StepsCompleted      []string
	RelevantContext     []string
	RetrievedTables     []string
	GeneratedSQL        string
	SQLValidationErrors []string
	QueryResults        [][]any
	ColumnNames         []string
	ExecutionTime       time.Duration
	Analysis            string
	Err                 error
	FriendlyError       string
}

// QueryRunner executes the accepted SQL against the warehouse.
type QueryRunner interface {
	RunQueryWithColumns(ctx context.Context, query string) ([][]any, []string, error)
}

// Workflow wires the pipeline stages together for one schema.
type Workflow struct {
	indexer      *schema.Indexer
	retriever    *retrieval.Retriever
	selector     *retrieval.Selector
	synthesizer  *synthesis.Synthesizer
	narrator     *narrate.Narrator
	exampleStore *examples.Store
	runner       QueryRunner
	schemaName   string
	logger       *logging.Logger
}

// New assembles a workflow from its collaborators.
func New(cfg *config.Config, provider llm.Provider, indexer *schema.Indexer, runner QueryRunner, exampleStore *examples.Store) *Workflow {
	return &Workflow{
		indexer:      indexer,
		retriever:    retrieval.NewRetriever(indexer, provider, cfg.Retrieval),
		selector:     retrieval.NewSelector(provider, cfg.Retrieval.ExampleTopK),
		synthesizer:  synthesis.NewSynthesizer(provider, cfg.Synthesis),
		narrator:     narrate.NewNarrator(provider, cfg.Synthesis.MaxTokens),
		exampleStore: exampleStore,
		runner:       runner,
		schemaName:   cfg.Warehouse.Schema,
		logger:       logging.GetLogger().WithField("component", "workflow"),
	}
}

// Execute answers one question. It always returns a state, even on
// failure; State.Err and the step log say how far the pipeline got.
func (w *Workflow) Execute(ctx context.Context, question string) *State {
	state := &State{
		RequestID: uuid.New().String(),
		Question:  question,
		Timestamp: time.Now(),
	}

	logger := w.logger.WithField("request_id", state.RequestID)
	logger.WithField("question", question).Info("Question received")

	if w.indexer.Index().Len() == 0 {
		if err := w.indexer.Reindex(ctx); err != nil {
			return w.fail(state, "index_schema", err)
		}

		state.StepsCompleted = append(state.StepsCompleted, "index_schema")
	}

	goldenExamples, err := w.exampleStore.List(w.schemaName)
	if err != nil {
		// Missing or broken curated examples degrade to zero-shot
		// generation rather than failing the question.
		logger.WithError(err).Warn("Failed to load golden examples")
		goldenExamples = nil
	}

	retrieved, err := w.retriever.Retrieve(ctx, question, examples.ReferencedColumns(goldenExamples))
	if err != nil {
		return w.fail(state, "retrieve_context", err)
	}

	for _, doc := range retrieved.Documents {
		state.RelevantContext = append(state.RelevantContext, doc.Text)
	}

	state.RetrievedTables = retrieved.Tables
	state.StepsCompleted = append(state.StepsCompleted, "retrieve_context")

	fewShot, err := w.selector.Select(ctx, retrieved.QuestionEmbedding, goldenExamples)
	if err != nil {
		return w.fail(state, "select_examples", err)
	}

	state.StepsCompleted = append(state.StepsCompleted, "select_examples")

	generated, err := w.synthesizer.Generate(ctx, question, retrieved, fewShot)
	if err != nil {
		step := "generate_sql"
		if errors.IsType(err, errors.ErrTypeGenerationBlocked) {
			return w.failWithSuffix(state, step, "_blocked", err)
		}

		return w.fail(state, step, err)
	}

	state.GeneratedSQL = generated.SQL
	state.SQLValidationErrors = generated.ValidationErrors
	state.StepsCompleted = append(state.StepsCompleted, "generate_sql")

	start := time.Now()

	rows, columns, err := w.runner.RunQueryWithColumns(ctx, generated.SQL)
	if err != nil {
		return w.fail(state, "execute_sql", errors.Wrap(err, errors.ErrTypeExecution, "query execution failed"))
	}

	state.QueryResults = rows
	state.ColumnNames = columns
	state.ExecutionTime = time.Since(start)
	state.StepsCompleted = append(state.StepsCompleted, "execute_sql")

	analysis, err := w.narrator.Narrate(ctx, question, generated.SQL, columns, rows)
	if err != nil {
		// Narration failure is not fatal: the rows are already in the
		// state and go back to the caller as-is.
		logger.WithError(err).Warn("Narration failed")
		state.StepsCompleted = append(state.StepsCompleted, "narrate_results_error")
		state.Err = err

		return state
	}

	state.Analysis = analysis
	state.StepsCompleted = append(state.StepsCompleted, "narrate_results")

	logger.WithFields(map[string]interface{}{
		"tables": len(state.RetrievedTables),
		"rows":   len(state.QueryResults),
	}).Info("Question answered")

	return state
}

func (w *Workflow) fail(state *State, step string, err error) *State {
	return w.failWithSuffix(state, step, "_error", err)
}

func (w *Workflow) failWithSuffix(state *State, step, suffix string, err error) *State {
	state.StepsCompleted = append(state.StepsCompleted, step+suffix)
	state.Err = err
	state.FriendlyError = FriendlyErrorMessage

	w.logger.WithField("request_id", state.RequestID).ErrorWithErr("Pipeline stage failed", err)

	return state
}
