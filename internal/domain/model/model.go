// Package model contains domain models passed between layers.
package model

import "time"

// Origin tags where a candidate came from.
type Origin int

const (
	// Established candidates are already part of the rated collection.
	Established Origin = iota
	// Challenger candidates are provisional and not yet persisted.
	Challenger
)

// String returns a lowercase label for logs and metrics.
func (o Origin) String() string {
	switch o {
	case Established:
		return "established"
	case Challenger:
		return "challenger"
	default:
		return "unknown"
	}
}

// Display is the presentation payload of a candidate. The engine passes it
// through untouched.
type Display struct {
	Name        string
	Image       string
	Description string
}

// Candidate is one comparable entity in a session.
type Candidate struct {
	ID      string  // stable for the session
	Origin  Origin  // Established or Challenger
	Rating  float64 // current skill estimate
	Display Display // opaque to the engine
}

// Pair is two distinct candidate ids shown together in one round.
// A and B keep the order in which they are presented.
type Pair struct {
	A string
	B string
}

// Key returns an order-independent identity for the pair.
func (p Pair) Key() string {
	if p.A < p.B {
		return p.A + "\x00" + p.B
	}
	return p.B + "\x00" + p.A
}

// Contains reports whether id is one of the pair's members.
func (p Pair) Contains(id string) bool {
	return p.A == id || p.B == id
}

// Other returns the pair member that is not id.
func (p Pair) Other(id string) string {
	if p.A == id {
		return p.B
	}
	return p.A
}

// Same reports whether both pairs name the same two candidates.
func (p Pair) Same(o Pair) bool {
	return p.Key() == o.Key()
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.A == "" && p.B == ""
}

// Outcome is the result of one round.
type Outcome int

const (
	// AWinsB means the first member of the pair was preferred.
	AWinsB Outcome = iota
	// BWinsA means the second member of the pair was preferred.
	BWinsA
	// Skipped means no preference was given.
	Skipped
)

// String returns a lowercase label for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case AWinsB:
		return "a_wins"
	case BWinsA:
		return "b_wins"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Round is one appended entry of a session's round log.
type Round struct {
	Number  int                // 1-based presentation order
	Pair    Pair               // the pair shown
	Outcome Outcome            // vote result or Skipped
	After   map[string]float64 // ratings of both members after the round
	At      time.Time
}

// RatingUpdate is one entry of a commit batch.
type RatingUpdate struct {
	PersistedID string
	FinalRating float64
}

// Commit is the payload produced when a session ends.
type Commit struct {
	SessionID string
	ContextID string
	Updates   []RatingUpdate
}

// Empty reports whether the commit carries no rating changes.
func (c Commit) Empty() bool {
	return len(c.Updates) == 0
}
