package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiClient talks to the Gemini API through the official SDK
type geminiClient struct {
	config Config
}

func newGemini(cfg Config) *geminiClient {
	return &geminiClient{config: cfg}
}

// Complete issues a single-turn generation
func (c *geminiClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := client.Models.GenerateContent(
		ctx,
		c.config.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// Embed returns the embedding vector for the given text
func (c *geminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	resp, err := client.Models.EmbedContent(
		ctx,
		c.config.EmbedModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}

	return resp.Embeddings[0].Values, nil
}
