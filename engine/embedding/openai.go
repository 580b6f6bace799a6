package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// OpenAIProvider embeds text through the OpenAI embeddings API, or any
// OpenAI-compatible endpoint when baseURL is set.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIProvider creates a provider for the given model. baseURL may be
// empty for api.openai.com.
func NewOpenAIProvider(apiKey, baseURL, model string, dimension int) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

// Dimension returns the configured vector dimension.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// EmbedText generates one embedding vector.
func (p *OpenAIProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response from %s", p.model)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)

	if p.dimension > 0 && len(vec) != p.dimension {
		return nil, fmt.Errorf("%w: provider returned %d dims, configured %d",
			domain.ErrDimensionMismatch, len(vec), p.dimension)
	}
	return vec, nil
}

// classifyOpenAIError wraps rate-limit and server-side failures with
// domain.Transient so the retry predicate picks them up. Auth and
// malformed-request errors pass through untouched.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429,
			apiErr.HTTPStatusCode == 408,
			apiErr.HTTPStatusCode >= 500:
			return domain.Transient(err)
		}
		return err
	}
	// Non-API errors from the client are connection-level.
	return err
}
