package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ollamaClient talks to a local Ollama server
type ollamaClient struct {
	config     Config
	httpClient *http.Client
}

func newOllama(cfg Config) *ollamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}

	return &ollamaClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Complete issues a single-turn generation
func (c *ollamaClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	respBody, err := c.makeRequest(ctx, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if response.Error != "" {
		return "", fmt.Errorf("Ollama API error: %s", response.Error)
	}

	return response.Response, nil
}

// Embed returns the embedding vector for the given text
func (c *ollamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{
		Model:  c.config.EmbedModel,
		Prompt: text,
	}

	respBody, err := c.makeRequest(ctx, "/api/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var response ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama embedding response: %w", err)
	}

	if response.Error != "" {
		return nil, fmt.Errorf("Ollama API error: %s", response.Error)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned from Ollama")
	}

	return response.Embedding, nil
}

// makeRequest makes an HTTP request to the Ollama API
func (c *ollamaClient) makeRequest(ctx context.Context, endpoint string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
