// Package testutil provides shared mocks for tests: a scriptable LLM
// provider and a scriptable warehouse runner.
package testutil

import (
	"context"
	"fmt"
	"sync"
)

// TextEmbedding derives a deterministic 8-dimensional vector from text.
// Similar texts do not embed similarly; tests that need controlled
// distances should install their own EmbedFunc.
func TextEmbedding(text string) []float32 {
	vec := make([]float32, 8)

	for i, r := range text {
		vec[i%8] += float32(r)
	}

	for i := range vec {
		vec[i] /= float32(len(text) + 1)
	}

	return vec
}

// MockProvider is a test double for the LLM provider. Completions are
// served from a scripted queue unless CompleteFunc is set; embeddings
// default to TextEmbedding unless EmbedFunc is set.
type MockProvider struct {
	mu           sync.Mutex
	EmbedFunc    func(ctx context.Context, text string) ([]float32, error)
	CompleteFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	completions  []string
	prompts      []string
	embedded     []string
}

// MockProviderOption configures a MockProvider.
type MockProviderOption func(*MockProvider)

// WithCompletions scripts the completion responses, served in order.
// When the queue runs dry, Complete returns an error.
func WithCompletions(responses ...string) MockProviderOption {
	return func(m *MockProvider) {
		m.completions = append(m.completions, responses...)
	}
}

// WithEmbedFunc replaces the default deterministic embedding.
func WithEmbedFunc(fn func(ctx context.Context, text string) ([]float32, error)) MockProviderOption {
	return func(m *MockProvider) {
		m.EmbedFunc = fn
	}
}

// WithCompleteFunc replaces the scripted completion queue entirely.
func WithCompleteFunc(fn func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)) MockProviderOption {
	return func(m *MockProvider) {
		m.CompleteFunc = fn
	}
}

// NewMockProvider builds a provider double with the given options.
func NewMockProvider(opts ...MockProviderOption) *MockProvider {
	m := &MockProvider{}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, temperature, maxTokens)
	}

	if len(m.completions) == 0 {
		return "", fmt.Errorf("mock provider: no scripted completion for prompt %d", len(m.prompts))
	}

	next := m.completions[0]
	m.completions = m.completions[1:]

	return next, nil
}

func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}

	return TextEmbedding(text), nil
}

// Prompts returns every prompt passed to Complete, in call order.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.prompts))
	copy(out, m.prompts)

	return out
}

// Embedded returns every text passed to Embed, in call order.
func (m *MockProvider) Embedded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.embedded))
	copy(out, m.embedded)

	return out
}

// MockRunner is a test double for warehouse query execution. QueryFunc
// decides the response; executed statements are recorded.
type MockRunner struct {
	mu        sync.Mutex
	QueryFunc func(ctx context.Context, query string) ([][]any, []string, error)
	queries   []string
}

// NewMockRunner builds a runner double around the given handler.
func NewMockRunner(fn func(ctx context.Context, query string) ([][]any, []string, error)) *MockRunner {
	return &MockRunner{QueryFunc: fn}
}

func (m *MockRunner) RunQuery(ctx context.Context, query string) ([][]any, error) {
	rows, _, err := m.RunQueryWithColumns(ctx, query)

	return rows, err
}

func (m *MockRunner) RunQueryWithColumns(ctx context.Context, query string) ([][]any, []string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.QueryFunc == nil {
		return nil, nil, nil
	}

	return m.QueryFunc(ctx, query)
}

// Queries returns every statement passed to the runner, in call order.
func (m *MockRunner) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.queries))
	copy(out, m.queries)

	return out
}
