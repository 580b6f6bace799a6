package rag

import (
	"fmt"
	"strings"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/graph"
)

// NoContextFound is forwarded to the model when retrieval produced nothing,
// so the model knows to answer from general knowledge.
const NoContextFound = "[No context retrieved]"

const (
	maxContextHits      = 8
	maxContextTags      = 6
	maxDescriptionChars = 500
	maxNearby           = 4
)

const personaPrompt = `You are an expert Vietnam travel consultant with deep knowledge of Vietnamese culture, geography, cuisine, and tourism.

Your expertise:
- Creating detailed, culturally authentic itineraries
- Providing practical logistics (timing, transport, costs)
- Recommending authentic experiences and hidden gems
- Understanding seasonal patterns and festivals
- Suggesting romantic spots for couples
- Advising on customs, etiquette, and safety

When creating itineraries:
1. Day-by-day structure with morning/afternoon/evening
2. Realistic travel times between locations
3. Specific experiences and photo spots
4. Optimal visiting times and crowd expectations
5. Practical tips: what to bring, dress codes, costs
6. Local food and dining recommendations
7. Balanced pace (no over-scheduling)
8. Cultural insights and customs

Response style:
- Warm, enthusiastic, personal
- Specific details from context
- Actionable recommendations
- Balance romance with practicality

Use retrieved context about places, hotels, activities to craft authentic recommendations.`

// BuildContext renders enriched retrieval hits into the context block sent
// to the model. At most eight hits are included; empty fields are omitted.
func BuildContext(hits []graph.EnrichedHit) string {
	if len(hits) == 0 {
		return NoContextFound
	}
	if len(hits) > maxContextHits {
		hits = hits[:maxContextHits]
	}

	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		parts = append(parts, formatHit(i+1, hit))
	}
	return strings.Join(parts, "\n\n")
}

func formatHit(rank int, hit graph.EnrichedHit) string {
	m := hit.Meta

	name := m.Name
	if name == "" {
		name = "Unknown"
	}
	typ := m.Type
	if typ == "" {
		typ = "Place"
	}

	lines := []string{fmt.Sprintf("[%d] %s (%s)", rank, name, typ)}

	location := m.City
	if location == "" {
		location = m.Region
	}
	if location != "" {
		lines = append(lines, "Location: "+location)
	}

	lines = append(lines, fmt.Sprintf("Relevance: %.3f", hit.Score))

	if len(m.Tags) > 0 {
		tags := m.Tags
		if len(tags) > maxContextTags {
			tags = tags[:maxContextTags]
		}
		lines = append(lines, "Tags: "+strings.Join(tags, ", "))
	}
	if m.BestTime != "" {
		lines = append(lines, "Best Time: "+m.BestTime)
	}
	if m.Description != "" {
		lines = append(lines, "\n"+truncateRunes(m.Description, maxDescriptionChars))
	}

	if nearby := formatNearby(hit.Graph.Related); nearby != "" {
		lines = append(lines, "Nearby: "+nearby)
	}
	return strings.Join(lines, "\n")
}

// truncateRunes caps s at max characters, never splitting a multibyte rune.
func truncateRunes(s string, max int) string {
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

func formatNearby(related []graph.Neighbor) string {
	if len(related) > maxNearby {
		related = related[:maxNearby]
	}
	names := make([]string, 0, len(related))
	for _, n := range related {
		if n.Name == "" {
			continue
		}
		if n.Type != "" {
			names = append(names, fmt.Sprintf("%s (%s)", n.Name, n.Type))
		} else {
			names = append(names, n.Name)
		}
	}
	return strings.Join(names, ", ")
}
