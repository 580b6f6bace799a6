package rag

import (
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// History is a bounded window of conversation turns. When full, appending
// drops the oldest turn. Not safe for concurrent use; the chat loop is
// single-threaded.
type History struct {
	max   int
	turns []domain.Turn
}

// NewHistory creates a history keeping at most max turns. max <= 0 means
// the history stays empty.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Append records a turn, evicting the oldest when the window is full.
func (h *History) Append(role domain.Role, content string) {
	if h.max <= 0 {
		return
	}
	h.turns = append(h.turns, domain.Turn{Role: role, Content: content})
	if len(h.turns) > h.max {
		h.turns = h.turns[len(h.turns)-h.max:]
	}
}

// Recent returns up to n turns in arrival order, oldest first.
func (h *History) Recent(n int) []domain.Turn {
	if n <= 0 || len(h.turns) == 0 {
		return nil
	}
	if n > len(h.turns) {
		n = len(h.turns)
	}
	out := make([]domain.Turn, n)
	copy(out, h.turns[len(h.turns)-n:])
	return out
}

// Len returns the number of retained turns.
func (h *History) Len() int { return len(h.turns) }
