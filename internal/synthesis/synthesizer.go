// Package synthesis generates SQL from a question and retrieved schema
// context, validating each draft against the column whitelist and
// retrying with corrective feedback when the model invents identifiers.
package synthesis

import (
	"context"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/logging"
	"github.com/nlquery/analyst/internal/retrieval"
)

// Result is an accepted generation: the SQL, how many attempts it took,
// and the validation feedback that drove the final attempt, kept for
// diagnostics.
type Result struct {
	SQL              string
	Attempts         int
	ValidationErrors []string
}

// Synthesizer drives the draft→validate→retry loop.
type Synthesizer struct {
	provider llm.Provider
	cfg      config.SynthesisConfig
	logger   *logging.Logger
}

// NewSynthesizer returns a synthesizer using the given provider.
func NewSynthesizer(provider llm.Provider, cfg config.SynthesisConfig) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		cfg:      cfg,
		logger:   logging.GetLogger().WithField("component", "synthesizer"),
	}
}

// Generate produces validated SQL for the question. A blocklist hit is
// fatal immediately; column validation failures are retried with the
// specific errors echoed back, up to the attempt budget.
func (s *Synthesizer) Generate(ctx context.Context, question string, retrieved *retrieval.Context, fewShot []examples.Example) (*Result, error) {
	var feedback []string

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		prompt := buildPrompt(question, retrieved, fewShot, feedback)

		raw, err := s.provider.Complete(ctx, prompt, s.cfg.Temperature, s.cfg.MaxTokens)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeLLM, "SQL generation failed on attempt %d", attempt)
		}

		sql := CleanResponse(raw)
		if sql == "" {
			return nil, errors.New(errors.ErrTypeLLM, "model returned an empty response")
		}

		if keyword, blocked := CheckBlocklist(sql); blocked {
			return nil, errors.Newf(errors.ErrTypeGenerationBlocked,
				"generated SQL contains blocked keyword %s", keyword).
				WithSuggestion("Rephrase the question as a read-only lookup")
		}

		validationErrs := ValidateColumns(sql, retrieved.Whitelist)
		if len(validationErrs) == 0 {
			s.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
			}).Debug("SQL accepted")

			return &Result{SQL: sql, Attempts: attempt, ValidationErrors: feedback}, nil
		}

		s.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"errors":  len(validationErrs),
		}).Warn("SQL validation failed")

		feedback = validationErrs
	}

	err := errors.Newf(errors.ErrTypeValidation,
		"SQL validation failed after %d attempts", s.cfg.MaxAttempts).
		WithSuggestion("Rephrase the question using terms closer to the schema's column descriptions")
	for _, e := range feedback {
		err = err.WithSuggestion(e)
	}

	return nil, err
}
