package semantic

import "github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"

// ItemMeta is the catalog metadata carried in the vector index payload,
// normalized at the provider boundary.
type ItemMeta struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	City         string   `json:"city,omitempty"`
	Region       string   `json:"region,omitempty"`
	Description  string   `json:"description,omitempty"`
	SemanticText string   `json:"semantic_text,omitempty"`
	BestTime     string   `json:"best_time_to_visit,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// RetrievalHit is a single vector search result. Produced fresh per query,
// never persisted.
type RetrievalHit struct {
	ID    string   `json:"id"` // catalog item id, not the raw point id
	Score float32  `json:"score"`
	Meta  ItemMeta `json:"meta"`
}

// VectorRecord is one vector to store in the index.
type VectorRecord struct {
	ItemID    string
	Embedding []float32
	Meta      ItemMeta
}

// MetaFromItem projects a CatalogItem onto its index payload, clamping the
// long text fields the way the batch loader always has.
func MetaFromItem(item domain.CatalogItem) ItemMeta {
	return ItemMeta{
		Name:         item.Name,
		Type:         string(item.Type),
		City:         item.City,
		Region:       item.Region,
		Description:  clamp(item.Description, 800),
		SemanticText: clamp(item.SemanticText, 1000),
		BestTime:     item.BestTime,
		Tags:         item.Tags,
	}
}

// clamp caps s at max characters, never splitting a multibyte rune.
func clamp(s string, max int) string {
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
