package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// LoadDataset reads the travel catalog from a JSON file. Items that fail
// validation are dropped and reported in the returned skip count.
func LoadDataset(path string) ([]domain.CatalogItem, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: read dataset: %w", err)
	}

	var items []domain.CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("ingest: parse dataset %s: %w", path, err)
	}

	valid := items[:0]
	skipped := 0
	for _, item := range items {
		item.Type = domain.ParseItemType(string(item.Type))
		if err := domain.ValidateItem(item); err != nil {
			skipped++
			continue
		}
		valid = append(valid, item)
	}
	return valid, skipped, nil
}

// SemanticText selects the text to embed for an item, preferring the
// curated semantic text, then the description, then the bare name.
func SemanticText(item domain.CatalogItem) string {
	if item.SemanticText != "" {
		return item.SemanticText
	}
	if item.Description != "" {
		return item.Description
	}
	return item.Name
}
