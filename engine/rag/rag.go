// Package rag orchestrates the hybrid retrieval pipeline. A user question
// is embedded, matched against the vector index, enriched with graph
// neighborhoods, rendered into a context block and answered by the chat
// model.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/graph"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/resilience"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts vector similarity search.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]semantic.RetrievalHit, error)
}

// ContextEnricher attaches graph neighborhoods to retrieval hits.
type ContextEnricher interface {
	Enrich(ctx context.Context, hits []semantic.RetrievalHit) []graph.EnrichedHit
}

// AnswerGenerator produces the final model response.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, contextBlock string, history []domain.Turn) (string, error)
}

// Options configures the pipeline behaviour.
type Options struct {
	TopK          int
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          5,
		SearchTimeout: 10 * time.Second,
	}
}

// Answer is the structured response of one pipeline run.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Source identifies a retrieved item backing the answer.
type Source struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Type  string  `json:"type,omitempty"`
	Score float32 `json:"score"`
}

// Service runs the full pipeline.
type Service struct {
	embed  Embedder
	search Searcher
	enrich ContextEnricher
	gen    AnswerGenerator
	opts   Options
	retry  resilience.RetryPolicy
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a pipeline Service.
func New(embed Embedder, search Searcher, enrich ContextEnricher, gen AnswerGenerator, opts Options, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	retry := resilience.DefaultRetry
	retry.RetryIf = domain.IsTransient
	return &Service{
		embed:  embed,
		search: search,
		enrich: enrich,
		gen:    gen,
		opts:   opts,
		retry:  retry,
		logger: logger,
		tracer: otel.Tracer("engine/rag"),
	}
}

// Query runs one question through the pipeline. history carries prior
// turns of the conversation, oldest first.
func (s *Service) Query(ctx context.Context, question string, history []domain.Turn) (*Answer, error) {
	if err := domain.ValidateQueryText(question); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "rag.query")
	defer span.End()

	start := time.Now()
	s.logger.Info("pipeline start", "question_len", len(question))

	vector, err := s.embedStage(ctx, question)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("rag: embed query: %w", err))
	}

	hits, err := s.searchStage(ctx, vector)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("rag: search: %w", err))
	}
	s.logger.Info("retrieval done", "hits", len(hits))

	enriched := s.enrichStage(ctx, hits)
	contextBlock := BuildContext(enriched)

	text, err := s.generateStage(ctx, question, contextBlock, history)
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.logger.Info("pipeline done",
		"hits", len(hits),
		"answer_chars", len(text),
		"elapsed", time.Since(start))

	return &Answer{Text: text, Sources: sourcesFrom(enriched)}, nil
}

func (s *Service) embedStage(ctx context.Context, question string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "rag.embed")
	defer span.End()
	vector, err := s.embed.Embed(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return vector, err
}

func (s *Service) searchStage(ctx context.Context, vector []float32) ([]semantic.RetrievalHit, error) {
	ctx, span := s.tracer.Start(ctx, "rag.search")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	hits, err := resilience.DoValue(ctx, s.retry, func(ctx context.Context) ([]semantic.RetrievalHit, error) {
		return s.search.Search(ctx, vector, s.opts.TopK, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return hits, err
}

func (s *Service) enrichStage(ctx context.Context, hits []semantic.RetrievalHit) []graph.EnrichedHit {
	ctx, span := s.tracer.Start(ctx, "rag.enrich")
	defer span.End()
	return s.enrich.Enrich(ctx, hits)
}

func (s *Service) generateStage(ctx context.Context, question, contextBlock string, history []domain.Turn) (string, error) {
	ctx, span := s.tracer.Start(ctx, "rag.generate")
	defer span.End()
	text, err := s.gen.Generate(ctx, question, contextBlock, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return text, err
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("pipeline failed", "error", err)
	return err
}

func sourcesFrom(hits []graph.EnrichedHit) []Source {
	sources := make([]Source, len(hits))
	for i, h := range hits {
		sources[i] = Source{
			ID:    h.ID,
			Name:  h.Meta.Name,
			Type:  h.Meta.Type,
			Score: h.Score,
		}
	}
	return sources
}
