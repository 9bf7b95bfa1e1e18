// Package ratings holds the per-session rating values.
//
// A Store is seeded from persisted values when a session starts, mutated only
// by rating updates, and read once at the end to build the commit batch. It
// is owned by exactly one session and is not safe for concurrent use.
package ratings

import "fmt"

// Store maps candidate ids to their current rating.
type Store struct {
	current map[string]float64
	changed []string        // ids in order of first change
	touched map[string]bool // ids whose rating changed at least once
}

// New returns an empty store.
func New() *Store {
	return &Store{
		current: make(map[string]float64),
		touched: make(map[string]bool),
	}
}

// Seed registers id with its starting rating. Seeding the same id twice is an
// error so a session never silently replaces a persisted value.
func (s *Store) Seed(id string, rating float64) error {
	if _, ok := s.current[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	s.current[id] = rating
	return nil
}

// Get returns the current rating of id.
func (s *Store) Get(id string) (float64, bool) {
	r, ok := s.current[id]
	return r, ok
}

// Set writes a new rating for a known id. Writes that leave the value
// bit-identical are not recorded as changes.
func (s *Store) Set(id string, rating float64) error {
	prev, ok := s.current[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	if prev == rating {
		return nil
	}
	s.current[id] = rating
	if !s.touched[id] {
		s.touched[id] = true
		s.changed = append(s.changed, id)
	}
	return nil
}

// Changed returns ids whose rating changed at least once, in order of first
// change.
func (s *Store) Changed() []string {
	out := make([]string, len(s.changed))
	copy(out, s.changed)
	return out
}

// Snapshot returns a copy of all current ratings.
func (s *Store) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.current))
	for id, r := range s.current {
		out[id] = r
	}
	return out
}

// Len returns the number of seeded ids.
func (s *Store) Len() int {
	return len(s.current)
}
