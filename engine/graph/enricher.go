package graph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/resilience"
)

const defaultEnrichWorkers = 4

// NeighborSource looks up the graph neighborhood of a node.
type NeighborSource interface {
	Neighbors(ctx context.Context, nodeID string) (GraphContext, error)
}

// Enricher attaches graph context to vector retrieval hits using a bounded
// worker pool. A failed lookup degrades that one hit to an empty context;
// the batch itself never errors.
type Enricher struct {
	source  NeighborSource
	workers int
	retry   resilience.RetryPolicy
	logger  *slog.Logger
}

// NewEnricher creates an Enricher. workers <= 0 selects the default pool
// size.
func NewEnricher(source NeighborSource, workers int, logger *slog.Logger) *Enricher {
	if workers <= 0 {
		workers = defaultEnrichWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	retry := resilience.DefaultRetry
	retry.RetryIf = domain.IsTransient
	return &Enricher{
		source:  source,
		workers: workers,
		retry:   retry,
		logger:  logger,
	}
}

// Enrich returns one EnrichedHit per input hit, in input order. Hits whose
// lookup fails or finds nothing carry an empty GraphContext.
func (e *Enricher) Enrich(ctx context.Context, hits []semantic.RetrievalHit) []EnrichedHit {
	enriched := make([]EnrichedHit, len(hits))
	if len(hits) == 0 {
		return enriched
	}

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, hit semantic.RetrievalHit) {
			defer wg.Done()
			defer func() { <-sem }()
			enriched[i] = EnrichedHit{
				RetrievalHit: hit,
				Graph:        e.lookup(ctx, hit.ID),
			}
		}(i, hit)
	}
	wg.Wait()
	return enriched
}

func (e *Enricher) lookup(ctx context.Context, nodeID string) GraphContext {
	if nodeID == "" {
		return GraphContext{}
	}
	gc, err := resilience.DoValue(ctx, e.retry, func(ctx context.Context) (GraphContext, error) {
		return e.source.Neighbors(ctx, nodeID)
	})
	if err != nil {
		e.logger.Warn("graph enrichment failed, continuing without context",
			"node_id", nodeID, "error", err)
		return GraphContext{}
	}
	return gc
}
