// Package history tracks which pairs a session has already shown.
package history

import "github.com/okian/duel/internal/domain/model"

// History records shown pairs in presentation order. A pair is identified
// regardless of member order. History is owned by one session and is not
// safe for concurrent use.
type History struct {
	count map[string]int
	last  map[string]int // key -> index of the latest showing
	n     int            // showings so far, repeats included
}

// New returns an empty history.
func New() *History {
	return &History{
		count: make(map[string]int),
		last:  make(map[string]int),
	}
}

// SeenAndRecord checks if p was shown before and records this showing.
// Returns true if p had already been shown.
func (h *History) SeenAndRecord(p model.Pair) bool {
	k := p.Key()
	seen := h.count[k] > 0
	h.count[k]++
	h.last[k] = h.n
	h.n++
	return seen
}

// Count returns how many times p was shown.
func (h *History) Count(p model.Pair) int {
	return h.count[p.Key()]
}

// LastShown returns the showing index of p's latest appearance, or -1.
func (h *History) LastShown(p model.Pair) int {
	i, ok := h.last[p.Key()]
	if !ok {
		return -1
	}
	return i
}
