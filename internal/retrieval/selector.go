package retrieval

import (
	"context"
	"sort"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/vector"
)

// Selector picks the golden examples closest to the current question.
type Selector struct {
	provider llm.Provider
	topK     int
}

// NewSelector returns a selector choosing up to topK examples.
func NewSelector(provider llm.Provider, topK int) *Selector {
	return &Selector{provider: provider, topK: topK}
}

// Select ranks examples by squared distance between their question
// embeddings and the given question embedding, returning the top-k.
// With no examples the synthesizer runs without few-shot grounding, so
// an empty input yields an empty output, not an error.
func (s *Selector) Select(ctx context.Context, questionEmbedding []float32, candidates []examples.Example) ([]examples.Example, error) {
	if len(candidates) == 0 || s.topK <= 0 {
		return nil, nil
	}

	type scored struct {
		example  examples.Example
		distance float32
	}

	ranked := make([]scored, 0, len(candidates))

	for _, ex := range candidates {
		embedding, err := s.provider.Embed(ctx, ex.Question)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeRetrieval,
				"failed to embed example question %q", ex.Question)
		}

		ranked = append(ranked, scored{
			example:  ex,
			distance: vector.SquaredL2(questionEmbedding, embedding),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	k := s.topK
	if k > len(ranked) {
		k = len(ranked)
	}

	out := make([]examples.Example, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].example
	}

	return out, nil
}
