package session

import (
	"time"

	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/internal/domain/matchmaker"
	"github.com/okian/duel/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithID sets the session identifier.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithContextID names the ranking context (e.g. a collection) the session
// belongs to.
func WithContextID(id string) Option {
	return func(s *Session) {
		s.contextID = id
	}
}

// WithMatchmaker sets the pair selector.
func WithMatchmaker(mm *matchmaker.Matchmaker) Option {
	return func(s *Session) {
		if mm != nil {
			s.mm = mm
		}
	}
}

// WithSeed builds a default matchmaker from seed.
func WithSeed(seed int64) Option {
	return func(s *Session) {
		s.mm = matchmaker.New(seed)
	}
}

// WithRater sets the rating rule.
func WithRater(r elo.Rater) Option {
	return func(s *Session) {
		if r.K > 0 && r.Scale > 0 {
			s.rater = r
		}
	}
}

// WithRecordCreator sets the collaborator that persists promoted challengers.
func WithRecordCreator(c RecordCreator) Option {
	return func(s *Session) {
		s.creator = c
	}
}

// WithMaxRounds caps the number of presented rounds. Zero means unbounded.
func WithMaxRounds(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxRounds = n
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp rounds.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
