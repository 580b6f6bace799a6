// Package ingest builds the vector index and knowledge graph from the
// travel catalog dataset in one batch run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
)

// UpsertBatchSize is the max vector records per upsert request.
const UpsertBatchSize = 100

// Embedder produces embeddings for dataset texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex is the vector store surface the loader needs.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dims int, recreate bool) error
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// GraphLoader is the graph store surface the loader needs.
type GraphLoader interface {
	Clear(ctx context.Context) error
	EnsureConstraints(ctx context.Context) error
	SaveItems(ctx context.Context, items []domain.CatalogItem) error
	LinkRegions(ctx context.Context) error
	SaveConnections(ctx context.Context, items []domain.CatalogItem) error
	BuildDerivedRelationships(ctx context.Context) error
	Stats(ctx context.Context) (map[string]int64, error)
}

// Deps holds the loader's external collaborators.
type Deps struct {
	Embedder Embedder
	Vectors  VectorIndex
	Graph    GraphLoader
	Logger   *slog.Logger
}

// Options configures a batch run.
type Options struct {
	DataFile string
	// Recreate drops a dimension-mismatched collection instead of failing.
	Recreate bool
	// ClearGraph wipes the graph before loading.
	ClearGraph bool
}

// Summary reports what a batch run accomplished.
type Summary struct {
	Items      int
	Skipped    int
	Vectors    int
	GraphStats map[string]int64
	Elapsed    time.Duration
}

// Runner executes the batch load.
type Runner struct {
	deps Deps
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(deps Deps, opts Options) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Runner{deps: deps, opts: opts}
}

// Run loads the dataset, embeds and indexes it, then builds the graph.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	log := r.deps.Logger

	items, skipped, err := LoadDataset(r.opts.DataFile)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn("dataset items skipped by validation", "skipped", skipped)
	}
	log.Info("dataset loaded", "items", len(items), "file", r.opts.DataFile)

	if err := r.deps.Vectors.EnsureCollection(ctx, r.deps.Embedder.Dimension(), r.opts.Recreate); err != nil {
		return nil, fmt.Errorf("ingest: ensure collection: %w", err)
	}

	records, err := r.embedItems(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := r.upsertRecords(ctx, records); err != nil {
		return nil, err
	}
	log.Info("vector index loaded", "vectors", len(records))

	stats, err := r.loadGraph(ctx, items)
	if err != nil {
		return nil, err
	}
	log.Info("graph loaded", "stats", stats)

	return &Summary{
		Items:      len(items),
		Skipped:    skipped,
		Vectors:    len(records),
		GraphStats: stats,
		Elapsed:    time.Since(start),
	}, nil
}

func (r *Runner) embedItems(ctx context.Context, items []domain.CatalogItem) ([]semantic.VectorRecord, error) {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = SemanticText(item)
	}

	embeddings, err := r.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ingest: embed dataset: %w", err)
	}

	records := make([]semantic.VectorRecord, len(items))
	for i, item := range items {
		records[i] = semantic.VectorRecord{
			ItemID:    item.ID,
			Embedding: embeddings[i],
			Meta:      semantic.MetaFromItem(item),
		}
	}
	return records, nil
}

func (r *Runner) upsertRecords(ctx context.Context, records []semantic.VectorRecord) error {
	for i := 0; i < len(records); i += UpsertBatchSize {
		end := i + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := r.deps.Vectors.Upsert(ctx, records[i:end]); err != nil {
			return fmt.Errorf("ingest: upsert batch at %d: %w", i, err)
		}
		r.deps.Logger.Info("vectors upserted", "done", end, "total", len(records))
	}
	return nil
}

func (r *Runner) loadGraph(ctx context.Context, items []domain.CatalogItem) (map[string]int64, error) {
	g := r.deps.Graph

	if r.opts.ClearGraph {
		if err := g.Clear(ctx); err != nil {
			return nil, fmt.Errorf("ingest: clear graph: %w", err)
		}
	}
	if err := g.EnsureConstraints(ctx); err != nil {
		return nil, fmt.Errorf("ingest: constraints: %w", err)
	}
	if err := g.SaveItems(ctx, items); err != nil {
		return nil, fmt.Errorf("ingest: save nodes: %w", err)
	}
	if err := g.LinkRegions(ctx); err != nil {
		return nil, fmt.Errorf("ingest: regions: %w", err)
	}
	if err := g.SaveConnections(ctx, items); err != nil {
		return nil, fmt.Errorf("ingest: connections: %w", err)
	}
	if err := g.BuildDerivedRelationships(ctx); err != nil {
		return nil, fmt.Errorf("ingest: derived relationships: %w", err)
	}
	return g.Stats(ctx)
}
