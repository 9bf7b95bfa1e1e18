// Package repository defines the collaborators a ranking session talks to and
// an in-memory implementation of them.
package repository

import (
	"context"

	"github.com/okian/duel/internal/domain/model"
)

// Entry represents a leaderboard row of one collection.
type Entry struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// Record is a persisted candidate.
type Record struct {
	ID        string
	ContextID string
	Display   model.Display
	Rating    float64
	// SourceID is the provisional challenger id the record was promoted from.
	SourceID string
}

// Loader supplies the candidates of a session.
type Loader interface {
	// LoadEstablished returns every persisted candidate of contextID.
	LoadEstablished(ctx context.Context, contextID string) ([]model.Candidate, error)
	// LoadChallengers returns up to limit unpromoted challengers of contextID
	// whose display name is not in excludeNames. A limit of zero means all.
	LoadChallengers(ctx context.Context, contextID string, limit int, excludeNames []string) ([]model.Candidate, error)
}

// RecordCreator persists a challenger on its first win. It must be
// idempotent per challenger id.
type RecordCreator interface {
	CreatePersistedRecord(ctx context.Context, c model.Candidate, rating float64) (string, error)
}

// BatchApplier writes a commit batch all-or-nothing.
type BatchApplier interface {
	ApplyRatingBatch(ctx context.Context, updates []model.RatingUpdate) error
}

// Store is the full collaborator surface plus leaderboard reads.
type Store interface {
	Loader
	RecordCreator
	BatchApplier

	// TopN returns the first n entries of contextID ordered by rating desc, id asc.
	TopN(ctx context.Context, contextID string, n int) ([]Entry, error)
	// Rank returns the leaderboard row of a persisted record.
	Rank(ctx context.Context, id string) (Entry, error)
	// Count returns the number of persisted records in contextID.
	Count(ctx context.Context, contextID string) int
}
