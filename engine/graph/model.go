package graph

import (
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
)

// Neighbor is a node one relationship hop away from a retrieved item.
type Neighbor struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// GraphContext holds the graph neighborhood of a single catalog item.
// A zero GraphContext means the item was not found in the graph, or the
// lookup failed; callers treat both the same.
type GraphContext struct {
	Node    map[string]any `json:"node,omitempty"`
	Related []Neighbor     `json:"related,omitempty"`
}

// Empty reports whether the context carries no graph data.
func (g GraphContext) Empty() bool {
	return len(g.Node) == 0 && len(g.Related) == 0
}

// EnrichedHit is a vector retrieval hit with its graph neighborhood attached.
type EnrichedHit struct {
	semantic.RetrievalHit
	Graph GraphContext
}
