package llm

import (
	"context"
	"fmt"
)

// Provider is the interface for language model interactions.
// Complete issues a single-turn completion; Embed returns a fixed-dimension
// embedding for a text string.
type Provider interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config configures an LLM provider
type Config struct {
	Provider   string `json:"provider"` // openai, ollama, gemini
	Model      string `json:"model"`
	EmbedModel string `json:"embed_model"`
	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
}

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// NewProvider creates an LLM provider from configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for openai provider")
		}

		return newOpenAI(cfg), nil
	case ProviderOllama:
		return newOllama(cfg), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for gemini provider")
		}

		return newGemini(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
