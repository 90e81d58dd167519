// Package history persists answered questions in a local DuckDB file,
// so past questions, their SQL, and their summaries can be reviewed.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/workflow"
)

// Entry is one recorded question.
type Entry struct {
	ID          string
	Question    string
	SQL         string
	Analysis    string
	RowCount    int
	ExecutionMS int64
	Error       string
	CreatedAt   time.Time
}

// FromState converts a finished workflow state into a history entry.
func FromState(state *workflow.State) Entry {
	entry := Entry{
		ID:          state.RequestID,
		Question:    state.Question,
		SQL:         state.GeneratedSQL,
		Analysis:    state.Analysis,
		RowCount:    len(state.QueryResults),
		ExecutionMS: state.ExecutionTime.Milliseconds(),
		CreatedAt:   state.Timestamp,
	}

	if state.Err != nil {
		entry.Error = state.Err.Error()
	}

	return entry
}

// Store is a DuckDB-backed history log.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_history (
    id VARCHAR PRIMARY KEY,
    question VARCHAR NOT NULL,
    generated_sql VARCHAR,
    analysis VARCHAR,
    row_count INTEGER NOT NULL DEFAULT 0,
    execution_ms BIGINT NOT NULL DEFAULT 0,
    error VARCHAR,
    created_at TIMESTAMP NOT NULL
)`

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to create history directory %s", dir)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open history database")
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to initialize history schema")
	}

	return &Store{db: db}, nil
}

// Save records one entry.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history (id, question, generated_sql, analysis, row_count, execution_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Question, entry.SQL, entry.Analysis,
		entry.RowCount, entry.ExecutionMS, entry.Error, entry.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to save history entry")
	}

	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, generated_sql, analysis, row_count, execution_ms, error, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list history")
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var entry Entry

		var sqlText, analysis, errText sql.NullString

		if err := rows.Scan(&entry.ID, &entry.Question, &sqlText, &analysis,
			&entry.RowCount, &entry.ExecutionMS, &errText, &entry.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan history entry")
		}

		entry.SQL = sqlText.String
		entry.Analysis = analysis.String
		entry.Error = errText.String

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "history iteration failed")
	}

	return entries, nil
}

// Delete removes one entry by id. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM query_history WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to delete history entry")
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
