package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleProvider embeds text through the Generative Language API
// (text-embedding-004 family, 768 dimensions).
type GoogleProvider struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

// NewGoogleProvider creates a Google embedding provider. model is the full
// resource name, e.g. "models/text-embedding-004". baseURL may be empty.
func NewGoogleProvider(apiKey, baseURL, model string, dimension int) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	return &GoogleProvider{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Dimension returns the configured vector dimension.
func (p *GoogleProvider) Dimension() int { return p.dimension }

type googleEmbedReq struct {
	Content googleContent `json:"content"`
	// TaskType matches retrieval use of the vectors.
	TaskType string `json:"taskType"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedResp struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// EmbedText generates one embedding vector.
func (p *GoogleProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(googleEmbedReq{
		Content:  googleContent{Parts: []googlePart{{Text: text}}},
		TaskType: "RETRIEVAL_DOCUMENT",
	})

	url := fmt.Sprintf("%s/%s:embedContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("google embed: status %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, domain.Transient(err)
		}
		return nil, err
	}

	var result googleEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("google embed decode: %w", err)
	}

	vec := result.Embedding.Values
	if p.dimension > 0 && len(vec) != p.dimension {
		return nil, fmt.Errorf("%w: provider returned %d dims, configured %d",
			domain.ErrDimensionMismatch, len(vec), p.dimension)
	}
	return vec, nil
}
