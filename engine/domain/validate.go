package domain

import "strings"

// ValidateQueryText checks a raw user query before it enters the pipeline.
func ValidateQueryText(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("query", text, ErrEmptyInput)
	}
	return nil
}

// ValidateItem checks a CatalogItem before ingestion.
func ValidateItem(item CatalogItem) error {
	if item.ID == "" {
		return NewValidationError("id", item.ID, ErrInvalidItem)
	}
	if item.Name == "" {
		return NewValidationError("name", item.ID, ErrInvalidItem)
	}
	if !ValidItemTypes[item.Type] {
		return NewValidationError("type", string(item.Type), ErrInvalidItem)
	}
	return nil
}
