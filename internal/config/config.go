// Package config defines engine configuration and its loading.
//
// Values are layered: defaults from New, an optional YAML file named by
// DUEL_CONFIG, then DUEL_ prefixed environment variables.
package config

import (
	"context"
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// KFactor is the maximum rating change per voted round.
	KFactor float64 `koanf:"k_factor"`

	// Scale is the rating gap at which the favourite is ten times as likely to win.
	Scale float64 `koanf:"scale"`

	// DefaultRating seeds challengers when the collection has no established items.
	DefaultRating float64 `koanf:"default_rating"`

	// Seed drives pair selection. Zero derives a seed from the clock per session.
	Seed int64 `koanf:"seed"`

	// MaxRounds caps presented rounds per session; zero is unbounded.
	MaxRounds int `koanf:"max_rounds"`

	// AllowRepeats lets the matchmaker re-offer shown pairs once fresh ones run out.
	AllowRepeats bool `koanf:"allow_repeats"`

	// TieEpsilon is the widest rating-gap difference the matchmaker treats as a tie.
	TieEpsilon float64 `koanf:"tie_epsilon"`

	// MaxChallengers bounds the challengers loaded into one session.
	MaxChallengers int `koanf:"max_challengers"`

	// CommitRetryAttempts bounds outbox retries of a failed commit batch.
	CommitRetryAttempts int `koanf:"commit_retry_attempts"`

	// CommitRetryBackoffMS is the base backoff between outbox retries.
	CommitRetryBackoffMS int `koanf:"commit_retry_backoff_ms"`

	// CommitQueueSize bounds the commit outbox.
	CommitQueueSize int `koanf:"commit_queue_size"`

	// CommitWorkers sets the number of outbox workers.
	CommitWorkers int `koanf:"commit_workers"`

	// MetricsAddr serves the ops HTTP API (/healthz, /metrics, /stats,
	// /leaderboard, /rank) when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		KFactor:              32,
		Scale:                400,
		DefaultRating:        1200,
		TieEpsilon:           1e-9,
		MaxChallengers:       5,
		CommitRetryAttempts:  5,
		CommitRetryBackoffMS: 200,
		CommitQueueSize:      1024,
		CommitWorkers:        1,
	}
}

// CommitRetryBackoff returns the outbox backoff as a duration.
func (c *Config) CommitRetryBackoff() time.Duration {
	return time.Duration(c.CommitRetryBackoffMS) * time.Millisecond
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch {
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive, got %v", ErrInvalidConfig, c.KFactor)
	case c.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive, got %v", ErrInvalidConfig, c.Scale)
	case c.MaxRounds < 0:
		return fmt.Errorf("%w: max_rounds must not be negative", ErrInvalidConfig)
	case c.TieEpsilon < 0:
		return fmt.Errorf("%w: tie_epsilon must not be negative", ErrInvalidConfig)
	case c.MaxChallengers < 0:
		return fmt.Errorf("%w: max_challengers must not be negative", ErrInvalidConfig)
	case c.CommitRetryAttempts < 0:
		return fmt.Errorf("%w: commit_retry_attempts must not be negative", ErrInvalidConfig)
	case c.CommitRetryBackoffMS < 0:
		return fmt.Errorf("%w: commit_retry_backoff_ms must not be negative", ErrInvalidConfig)
	case c.CommitQueueSize <= 0:
		return fmt.Errorf("%w: commit_queue_size must be positive", ErrInvalidConfig)
	case c.CommitWorkers <= 0:
		return fmt.Errorf("%w: commit_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
