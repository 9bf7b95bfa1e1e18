// Package pool defines the set of candidates comparable within one session.
package pool

import (
	"fmt"

	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/ratings"
)

// minCandidates is the smallest pool that can produce a pair.
const minCandidates = 2

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithDefaultRating sets the challenger baseline used when there are no
// established candidates.
func WithDefaultRating(rating float64) Option {
	return func(p *Pool) {
		p.defaultRating = rating
	}
}

type member struct {
	origin  model.Origin
	display model.Display
}

// Pool holds the candidates of a session and their ratings.
type Pool struct {
	order         []string
	members       map[string]*member
	store         *ratings.Store
	baseline      float64
	defaultRating float64
}

// New builds a pool from established and challenger candidates.
//
// Challengers are seeded with the mean rating of the established candidates,
// computed once here. With no established candidates the default rating is
// used. Duplicate ids keep their first occurrence, established first.
func New(established, challengers []model.Candidate, opts ...Option) (*Pool, error) {
	p := &Pool{
		members:       make(map[string]*member),
		store:         ratings.New(),
		defaultRating: elo.DefaultRating,
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, c := range established {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: established candidate without id", ErrInvalidCandidate)
		}
	}
	for _, c := range challengers {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: challenger without id", ErrInvalidCandidate)
		}
	}

	p.baseline = p.defaultRating
	var sum float64
	var n int
	seen := make(map[string]bool, len(established))
	for _, c := range established {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		sum += c.Rating
		n++
	}
	if n > 0 {
		p.baseline = sum / float64(n)
	}

	for _, c := range established {
		p.add(c, model.Established, c.Rating)
	}
	for _, c := range challengers {
		p.add(c, model.Challenger, p.baseline)
	}

	if len(p.order) < minCandidates {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCandidates, len(p.order), minCandidates)
	}
	return p, nil
}

func (p *Pool) add(c model.Candidate, origin model.Origin, rating float64) {
	if _, dup := p.members[c.ID]; dup {
		return
	}
	// Seed cannot fail: duplicates were filtered above.
	_ = p.store.Seed(c.ID, rating)
	p.members[c.ID] = &member{origin: origin, display: c.Display}
	p.order = append(p.order, c.ID)
}

// All returns every candidate with its current rating, in insertion order.
func (p *Pool) All() []model.Candidate {
	out := make([]model.Candidate, 0, len(p.order))
	for _, id := range p.order {
		c, _ := p.Get(id)
		out = append(out, c)
	}
	return out
}

// Get returns the candidate with the given id.
func (p *Pool) Get(id string) (model.Candidate, bool) {
	m, ok := p.members[id]
	if !ok {
		return model.Candidate{}, false
	}
	r, _ := p.store.Get(id)
	return model.Candidate{ID: id, Origin: m.origin, Rating: r, Display: m.display}, true
}

// Rating returns the current rating of id.
func (p *Pool) Rating(id string) (float64, bool) {
	return p.store.Get(id)
}

// SetRating writes a new rating for id.
func (p *Pool) SetRating(id string, rating float64) error {
	return p.store.Set(id, rating)
}

// Promote marks a challenger as established. It returns true only the first
// time a given challenger is promoted.
func (p *Pool) Promote(id string) (bool, error) {
	m, ok := p.members[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	if m.origin == model.Established {
		return false, nil
	}
	m.origin = model.Established
	return true, nil
}

// Baseline returns the rating challengers were seeded with.
func (p *Pool) Baseline() float64 {
	return p.baseline
}

// Ratings exposes the pool's rating store.
func (p *Pool) Ratings() *ratings.Store {
	return p.store
}

// Len returns the number of distinct candidates.
func (p *Pool) Len() int {
	return len(p.order)
}

// Count returns how many candidates currently have the given origin.
func (p *Pool) Count(origin model.Origin) int {
	n := 0
	for _, m := range p.members {
		if m.origin == origin {
			n++
		}
	}
	return n
}
