package service

import (
	"time"

	"github.com/okian/duel/internal/config"
	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRater sets the rating rule used by every session.
func WithRater(r elo.Rater) Option {
	return func(s *Service) {
		if r.K > 0 && r.Scale > 0 {
			s.rater = r
		}
	}
}

// WithDefaultRating sets the challenger rating used for empty collections.
func WithDefaultRating(rating float64) Option {
	return func(s *Service) {
		if rating > 0 {
			s.defaultRating = rating
		}
	}
}

// WithSeed makes pair selection reproducible. Session n is seeded with
// seed+n. Zero derives seeds from the clock.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithMaxRounds caps presented rounds per session.
func WithMaxRounds(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRounds = n
		}
	}
}

// WithRepeats lets sessions re-offer shown pairs once fresh ones run out.
func WithRepeats(allow bool) Option {
	return func(s *Service) {
		s.allowRepeats = allow
	}
}

// WithTieEpsilon sets the gap difference sessions treat as a selection tie.
func WithTieEpsilon(eps float64) Option {
	return func(s *Service) {
		if eps >= 0 {
			s.tieEpsilon = eps
		}
	}
}

// WithMaxChallengers bounds the challengers loaded per session.
func WithMaxChallengers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxChallengers = n
		}
	}
}

// WithCommitRetry sets outbox retry attempts and base backoff.
func WithCommitRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts >= 0 {
			s.retryAttempts = attempts
		}
		if backoff >= 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithCommitQueueSize bounds the commit outbox.
func WithCommitQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCommitWorkers sets the number of outbox workers.
func WithCommitWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies every engine setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		for _, opt := range []Option{
			WithRater(elo.New(elo.WithK(cfg.KFactor), elo.WithScale(cfg.Scale))),
			WithDefaultRating(cfg.DefaultRating),
			WithSeed(cfg.Seed),
			WithMaxRounds(cfg.MaxRounds),
			WithRepeats(cfg.AllowRepeats),
			WithTieEpsilon(cfg.TieEpsilon),
			WithMaxChallengers(cfg.MaxChallengers),
			WithCommitRetry(cfg.CommitRetryAttempts, cfg.CommitRetryBackoff()),
			WithCommitQueueSize(cfg.CommitQueueSize),
			WithCommitWorkers(cfg.CommitWorkers),
		} {
			opt(s)
		}
	}
}
