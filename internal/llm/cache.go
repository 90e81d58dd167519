package llm

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WrapEmbedCache wraps a provider with an in-memory LRU over Embed results.
// Column descriptions and golden-example questions are embedded repeatedly
// across requests; the cache makes those repeat calls free. Complete calls
// pass through untouched.
func WrapEmbedCache(next Provider, size int, ttl time.Duration) Provider {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}

	return &cachedProvider{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type cachedProvider struct {
	next  Provider
	cache *expirable.LRU[string, []float32]
}

func (c *cachedProvider) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return c.next.Complete(ctx, prompt, temperature, maxTokens)
}

func (c *cachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		return cloneEmbedding(cached), nil
	}

	res, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(text, cloneEmbedding(res))

	return res, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}

	clone := make([]float32, len(values))
	copy(clone, values)

	return clone
}
