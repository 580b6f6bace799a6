package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/resilience"
)

// Provider generates one embedding per call. Implementations normalize
// provider-specific failures: rate-limit and server errors come back wrapped
// with domain.Transient.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client fronts a Provider with the memoization cache, a rate limiter, and
// the pipeline-wide retry policy.
type Client struct {
	provider Provider
	cache    *Cache
	limiter  *rate.Limiter
	retry    resilience.RetryPolicy
	logger   *slog.Logger
}

// NewClient builds a Client. ratePerSec <= 0 disables throttling.
func NewClient(provider Provider, cache *Cache, ratePerSec float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	retry := resilience.DefaultRetry
	retry.RetryIf = domain.IsTransient
	return &Client{
		provider: provider,
		cache:    cache,
		limiter:  limiter,
		retry:    retry,
		logger:   logger,
	}
}

// Dimension reports the provider's vector dimension.
func (c *Client) Dimension() int { return c.provider.Dimension() }

// Embed returns the embedding for text. Blank text (after trimming) fails
// with domain.ErrEmptyInput. A cache hit returns immediately without a
// remote call; otherwise the provider is called under retry, the result is
// cached, and the cache opportunistically persisted.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.ErrEmptyInput
	}

	if vec, ok := c.cache.Get(trimmed); ok {
		return vec, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vec, err := resilience.DoValue(ctx, c.retry, func(ctx context.Context) ([]float32, error) {
		return c.provider.EmbedText(ctx, trimmed)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %w", domain.ErrProvider, err)
	}

	c.cache.Put(trimmed, vec)
	return vec, nil
}

// EmbedBatch embeds texts one at a time (the providers have no batch
// endpoint). The first failure aborts the batch with its index; the cache is
// flushed once at the end either way.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	defer c.cache.Flush()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec

		if (i+1)%10 == 0 {
			c.logger.Info("embedded batch progress", "done", i+1, "total", len(texts))
		}
	}
	return out, nil
}
