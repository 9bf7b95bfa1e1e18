package simulate

import (
	"math"
	"math/rand"

	"github.com/okian/duel/internal/domain/model"
)

// Voter prefers the stronger of two items with logistic noise.
type Voter struct {
	truth    Truth
	noise    float64
	skipRate float64
	rng      *rand.Rand
}

// NewVoter creates a voter over truth.
func NewVoter(truth Truth, noise, skipRate float64, seed int64) *Voter {
	return &Voter{
		truth:    truth,
		noise:    noise,
		skipRate: skipRate,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // simulated choices
	}
}

// Choose returns the id of the preferred candidate, or false to skip.
func (v *Voter) Choose(a, b model.Candidate) (string, bool) {
	if v.skipRate > 0 && v.rng.Float64() < v.skipRate {
		return "", false
	}
	if v.rng.Float64() < v.probability(a, b) {
		return a.ID, true
	}
	return b.ID, true
}

// probability returns the chance that a is preferred over b.
func (v *Voter) probability(a, b model.Candidate) float64 {
	diff := v.truth[a.Display.Name] - v.truth[b.Display.Name]
	if v.noise <= 0 {
		switch {
		case diff > 0:
			return 1
		case diff < 0:
			return 0
		default:
			return 0.5
		}
	}
	return 1 / (1 + math.Exp(-diff/v.noise))
}
