// Package elo implements the pairwise rating update used after each vote.
//
// The expected score of A against B follows the standard base-10 logistic:
//
//	E(A) = 1 / (1 + 10^((Rb - Ra) / Scale))
//
// and each rating moves by K * (S - E), where S is 1 for the winner and 0 for
// the loser. Ratings are never clamped or rounded.
package elo

import (
	"fmt"
	"math"

	"github.com/okian/duel/internal/domain/model"
)

// Default rating constants.
const (
	DefaultK      = 32.0
	DefaultScale  = 400.0
	DefaultRating = 1200.0
)

// Option applies a configuration option to the Rater.
type Option func(*Rater)

// WithK sets the step size.
func WithK(k float64) Option {
	return func(r *Rater) {
		if k > 0 {
			r.K = k
		}
	}
}

// WithScale sets the logistic divisor.
func WithScale(scale float64) Option {
	return func(r *Rater) {
		if scale > 0 {
			r.Scale = scale
		}
	}
}

// Rater holds the constants of the update rule. The zero value is not usable;
// build one with New.
type Rater struct {
	K     float64
	Scale float64
}

// New returns a Rater with standard ELO constants unless overridden.
func New(opts ...Option) Rater {
	r := Rater{K: DefaultK, Scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Expected returns the probability that a candidate rated a beats one rated b.
func (r Rater) Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/r.Scale))
}

// Update returns the new ratings of A and B for the given outcome.
// Skipped outcomes are rejected; skips never reach the rating rule.
func (r Rater) Update(a, b float64, outcome model.Outcome) (float64, float64, error) {
	var sa float64
	switch outcome {
	case model.AWinsB:
		sa = 1
	case model.BWinsA:
		sa = 0
	default:
		return a, b, fmt.Errorf("%w: %s", ErrUnratedOutcome, outcome)
	}

	ea := r.Expected(a, b)
	delta := r.K * (sa - ea)
	// E(B) = 1 - E(A), so B moves by exactly -delta.
	return a + delta, b - delta, nil
}

// Update applies the default Rater.
func Update(a, b float64, outcome model.Outcome) (float64, float64, error) {
	return New().Update(a, b, outcome)
}
