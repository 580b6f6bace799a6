// Package domain defines core domain types, constants, and validation for the
// VietVoyage retrieval pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

// ItemType classifies catalog items.
type ItemType string

const (
	TypeCity       ItemType = "City"
	TypeAttraction ItemType = "Attraction"
	TypeHotel      ItemType = "Hotel"
	TypeActivity   ItemType = "Activity"
	TypeOther      ItemType = "Other"
)

// ValidItemTypes is the set of recognised catalog item types.
var ValidItemTypes = map[ItemType]bool{
	TypeCity: true, TypeAttraction: true, TypeHotel: true,
	TypeActivity: true, TypeOther: true,
}

// ParseItemType maps a raw type string onto a known ItemType,
// falling back to TypeOther for anything unrecognised.
func ParseItemType(s string) ItemType {
	t := ItemType(s)
	if ValidItemTypes[t] {
		return t
	}
	return TypeOther
}

// Connection links a catalog item to another item with a relation label,
// e.g. {Target: "city_danang", Relation: "LOCATED_IN"}.
type Connection struct {
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// CatalogItem is one entry of the travel dataset. Items are created by the
// batch loader and immutable during interactive use; the vector index and the
// graph store each hold their own copy of the overlapping fields.
type CatalogItem struct {
	ID           string       `json:"id"`
	Type         ItemType     `json:"type"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	SemanticText string       `json:"semantic_text"`
	Region       string       `json:"region"`
	City         string       `json:"city"`
	BestTime     string       `json:"best_time_to_visit"`
	Tags         []string     `json:"tags"`
	Connections  []Connection `json:"connections,omitempty"`
}

// Role tags one conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation turn. Turns live only in the in-memory
// history window, never across process restarts.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
