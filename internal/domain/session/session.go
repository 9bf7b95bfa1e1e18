// Package session drives one pairwise ranking session.
//
// A Session moves from Active to Ended. While Active it issues pairs from the
// matchmaker, applies votes through the rating rule, records skips, and
// promotes challengers on their first win. End produces the commit batch of
// every rating that changed. A Session belongs to a single caller and is not
// safe for concurrent use; no call mutates state before returning an error.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/internal/domain/history"
	"github.com/okian/duel/internal/domain/matchmaker"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/pool"
	"github.com/okian/duel/pkg/logger"
)

// State is the lifecycle state of a session.
type State int

const (
	// Active sessions accept votes and skips.
	Active State = iota
	// Ended sessions are inert.
	Ended
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "ended"
}

// RecordCreator persists a promoted challenger and returns its persisted id.
// Implementations must be idempotent per challenger id.
type RecordCreator interface {
	CreatePersistedRecord(ctx context.Context, c model.Candidate, rating float64) (string, error)
}

// Promotion records a challenger that earned its place in the collection.
type Promotion struct {
	CandidateID string
	PersistedID string
	Rating      float64 // rating right after the winning round
	Round       int
}

// Session is the ranking state machine.
type Session struct {
	id        string
	contextID string
	state     State

	pool    *pool.Pool
	mm      *matchmaker.Matchmaker
	rater   elo.Rater
	shown   *history.History
	creator RecordCreator

	rounds     []model.Round
	voted      int
	current    model.Pair
	hasCurrent bool
	maxRounds  int

	persisted  map[string]string // candidate id -> persisted id
	promotions []Promotion
	commit     model.Commit

	now    func() time.Time
	logger logger.Logger
}

// Start opens an Active session over p.
func Start(p *pool.Pool, opts ...Option) (*Session, error) {
	if p == nil {
		return nil, ErrNilPool
	}
	s := &Session{
		id:        uuid.New().String(),
		state:     Active,
		pool:      p,
		rater:     elo.New(),
		shown:     history.New(),
		persisted: make(map[string]string, p.Len()),
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mm == nil {
		s.mm = matchmaker.New(time.Now().UnixNano())
	}
	if s.creator == nil && p.Count(model.Challenger) > 0 {
		return nil, ErrMissingCreator
	}

	for _, c := range p.All() {
		if c.Origin == model.Established {
			s.persisted[c.ID] = c.ID
		}
	}

	s.logger.Debug(context.Background(), "session started",
		logger.String("session", s.id),
		logger.String("context", s.contextID),
		logger.Int("candidates", p.Len()),
		logger.Int("challengers", p.Count(model.Challenger)),
		logger.Float64("baseline", p.Baseline()),
	)
	return s, nil
}

// Next returns the pair awaiting a decision, issuing a new one if needed.
// Calling Next again before voting returns the same pair.
func (s *Session) Next() (model.Pair, error) {
	if s.state == Ended {
		return model.Pair{}, ErrSessionEnded
	}
	if s.hasCurrent {
		return s.current, nil
	}
	if s.maxRounds > 0 && len(s.rounds) >= s.maxRounds {
		return model.Pair{}, fmt.Errorf("%w: round limit %d reached", ErrSessionExhausted, s.maxRounds)
	}
	pair, ok := s.mm.Next(s.pool, s.shown)
	if !ok {
		return model.Pair{}, fmt.Errorf("%w: no fresh pair left", ErrSessionExhausted)
	}
	s.current = pair
	s.hasCurrent = true
	return pair, nil
}

// Current returns the issued pair, if any.
func (s *Session) Current() (model.Pair, bool) {
	return s.current, s.hasCurrent
}

// Vote records that winnerID was preferred in pair. The pair must be the one
// currently issued and winnerID one of its members, otherwise ErrStalePair is
// returned and nothing changes. A challenger's first win promotes it through
// the record creator before any state is touched.
func (s *Session) Vote(ctx context.Context, pair model.Pair, winnerID string) (model.Round, error) {
	if err := s.checkIssued(pair); err != nil {
		return model.Round{}, err
	}
	if !s.current.Contains(winnerID) {
		return model.Round{}, fmt.Errorf("%w: %s is not part of the current pair", ErrStalePair, winnerID)
	}

	cur := s.current
	outcome := model.AWinsB
	if winnerID == cur.B {
		outcome = model.BWinsA
	}
	ra, _ := s.pool.Rating(cur.A)
	rb, _ := s.pool.Rating(cur.B)
	na, nb, err := s.rater.Update(ra, rb, outcome)
	if err != nil {
		return model.Round{}, err
	}
	winnerRating := na
	if outcome == model.BWinsA {
		winnerRating = nb
	}

	var promoted *Promotion
	winner, _ := s.pool.Get(winnerID)
	if winner.Origin == model.Challenger {
		winner.Rating = winnerRating
		pid, err := s.creator.CreatePersistedRecord(ctx, winner, winnerRating)
		if err != nil {
			s.logger.Warn(ctx, "challenger promotion failed",
				logger.String("session", s.id),
				logger.String("candidate", winnerID),
				logger.Error(err),
			)
			return model.Round{}, fmt.Errorf("%w: %s: %w", ErrPromotionFailed, winnerID, err)
		}
		if pid == "" {
			return model.Round{}, fmt.Errorf("%w: %s: empty persisted id", ErrPromotionFailed, winnerID)
		}
		promoted = &Promotion{CandidateID: winnerID, PersistedID: pid, Rating: winnerRating, Round: len(s.rounds) + 1}
	}

	// Nothing below can fail: both ids come from the pool.
	_ = s.pool.SetRating(cur.A, na)
	_ = s.pool.SetRating(cur.B, nb)
	if promoted != nil {
		_, _ = s.pool.Promote(winnerID)
		s.persisted[winnerID] = promoted.PersistedID
		s.promotions = append(s.promotions, *promoted)
		s.logger.Info(ctx, "challenger promoted",
			logger.String("session", s.id),
			logger.String("candidate", winnerID),
			logger.String("persisted", promoted.PersistedID),
			logger.Float64("rating", winnerRating),
		)
	}
	s.voted++
	round := s.appendRound(cur, outcome, map[string]float64{cur.A: na, cur.B: nb})

	s.logger.Debug(ctx, "round voted",
		logger.String("session", s.id),
		logger.Int("round", round.Number),
		logger.String("winner", winnerID),
		logger.String("loser", cur.Other(winnerID)),
	)
	return round, nil
}

// Skip records that no preference was given for pair. Ratings stay untouched
// but the pair counts as shown and is not offered again.
func (s *Session) Skip(ctx context.Context, pair model.Pair) (model.Round, error) {
	if err := s.checkIssued(pair); err != nil {
		return model.Round{}, err
	}
	cur := s.current
	ra, _ := s.pool.Rating(cur.A)
	rb, _ := s.pool.Rating(cur.B)
	round := s.appendRound(cur, model.Skipped, map[string]float64{cur.A: ra, cur.B: rb})

	s.logger.Debug(ctx, "round skipped",
		logger.String("session", s.id),
		logger.Int("round", round.Number),
	)
	return round, nil
}

// End closes the session and returns its commit batch. Ending is valid at any
// point while Active, including before the first round.
func (s *Session) End() (model.Commit, error) {
	if s.state == Ended {
		return model.Commit{}, ErrSessionEnded
	}
	s.state = Ended
	s.current = model.Pair{}
	s.hasCurrent = false
	s.commit = s.buildCommit()

	s.logger.Debug(context.Background(), "session ended",
		logger.String("session", s.id),
		logger.Int("presented", len(s.rounds)),
		logger.Int("voted", s.voted),
		logger.Int("updates", len(s.commit.Updates)),
	)
	return s.commit, nil
}

// buildCommit lists every candidate whose rating changed, in order of first
// change. Challengers that never won have no persisted record and are left
// out.
func (s *Session) buildCommit() model.Commit {
	c := model.Commit{SessionID: s.id, ContextID: s.contextID}
	for _, id := range s.pool.Ratings().Changed() {
		pid, ok := s.persisted[id]
		if !ok {
			continue
		}
		r, _ := s.pool.Rating(id)
		c.Updates = append(c.Updates, model.RatingUpdate{PersistedID: pid, FinalRating: r})
	}
	return c
}

func (s *Session) checkIssued(pair model.Pair) error {
	if s.state == Ended {
		return ErrSessionEnded
	}
	if !s.hasCurrent {
		return fmt.Errorf("%w: no pair issued", ErrStalePair)
	}
	if !pair.Same(s.current) {
		return fmt.Errorf("%w: %s/%s is not the current pair", ErrStalePair, pair.A, pair.B)
	}
	return nil
}

func (s *Session) appendRound(pair model.Pair, outcome model.Outcome, after map[string]float64) model.Round {
	s.shown.SeenAndRecord(pair)
	r := model.Round{
		Number:  len(s.rounds) + 1,
		Pair:    pair,
		Outcome: outcome,
		After:   after,
		At:      s.now(),
	}
	s.rounds = append(s.rounds, r)
	s.current = model.Pair{}
	s.hasCurrent = false
	return r
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ContextID returns the ranking context.
func (s *Session) ContextID() string { return s.contextID }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// RoundsVoted counts rounds that carried a vote. This is the user-facing
// round counter.
func (s *Session) RoundsVoted() int { return s.voted }

// RoundsPresented counts every resolved round, skips included.
func (s *Session) RoundsPresented() int { return len(s.rounds) }

// Rounds returns a copy of the round log.
func (s *Session) Rounds() []model.Round {
	out := make([]model.Round, len(s.rounds))
	for i, r := range s.rounds {
		after := make(map[string]float64, len(r.After))
		for k, v := range r.After {
			after[k] = v
		}
		r.After = after
		out[i] = r
	}
	return out
}

// Promotions returns the challengers promoted so far, in order.
func (s *Session) Promotions() []Promotion {
	out := make([]Promotion, len(s.promotions))
	copy(out, s.promotions)
	return out
}

// Ratings returns a snapshot of every candidate's current rating.
func (s *Session) Ratings() map[string]float64 {
	return s.pool.Ratings().Snapshot()
}

// Rating returns the current rating of candidate id.
func (s *Session) Rating(id string) (float64, bool) {
	return s.pool.Rating(id)
}

// Candidates returns the pool's candidates with current ratings.
func (s *Session) Candidates() []model.Candidate {
	return s.pool.All()
}

// Commit returns the batch produced by End. It is empty while Active.
func (s *Session) Commit() model.Commit {
	return s.commit
}
