// Package matchmaker selects which two candidates a session presents next.
//
// Selection order:
//  1. pairs not shown yet this session;
//  2. the smallest rating gap;
//  3. on equal gaps, pairs with fewer challengers;
//  4. remaining ties broken by the seeded random source.
//
// A challenger never appears in more than one pair of the same batch. When
// every pair has been shown the matchmaker reports exhaustion, unless repeats
// are allowed, in which case it re-offers the least-shown pair.
//
// Pair enumeration is quadratic in the pool size, which suits the size of a
// personal collection.
package matchmaker

import (
	"math"
	"math/rand"

	"github.com/okian/duel/internal/domain/model"
)

// DefaultTieEpsilon is the gap difference below which two pairs tie.
const DefaultTieEpsilon = 1e-9

// Source exposes the candidates to pair.
type Source interface {
	All() []model.Candidate
}

// History exposes which pairs were already shown.
type History interface {
	Count(p model.Pair) int
	LastShown(p model.Pair) int
}

// Option applies a configuration option to the Matchmaker.
type Option func(*Matchmaker)

// WithRepeats lets the matchmaker fall back to already shown pairs once no
// fresh pair is left.
func WithRepeats(allow bool) Option {
	return func(m *Matchmaker) {
		m.allowRepeats = allow
	}
}

// WithTieEpsilon sets the tolerance under which two gaps count as equal.
func WithTieEpsilon(eps float64) Option {
	return func(m *Matchmaker) {
		if eps >= 0 {
			m.tieEpsilon = eps
		}
	}
}

// WithSideShuffle randomises which member of a pair is presented first.
func WithSideShuffle(enabled bool) Option {
	return func(m *Matchmaker) {
		m.shuffleSides = enabled
	}
}

// Matchmaker picks pairs. It reads but never mutates pool state. Given the
// same seed and the same sequence of calls it returns the same pairs.
type Matchmaker struct {
	rng          *rand.Rand
	allowRepeats bool
	shuffleSides bool
	tieEpsilon   float64
}

// New returns a Matchmaker driven by seed.
func New(seed int64, opts ...Option) *Matchmaker {
	m := &Matchmaker{
		rng:          rand.New(rand.NewSource(seed)), //nolint:gosec // selection randomness, not security
		shuffleSides: true,
		tieEpsilon:   DefaultTieEpsilon,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// option is one selectable pair and its ranking keys.
type option struct {
	pair        model.Pair
	gap         float64
	challengers int
	shown       int
	last        int
	aChallenger bool
	bChallenger bool
}

// Next returns the next pair, or false when the session is exhausted.
func (m *Matchmaker) Next(src Source, h History) (model.Pair, bool) {
	batch := m.NextBatch(src, h, 1)
	if len(batch) == 0 {
		return model.Pair{}, false
	}
	return batch[0], true
}

// NextBatch returns up to n pairs for concurrent presentation. No pair
// repeats within the batch and no challenger appears in two of its pairs.
func (m *Matchmaker) NextBatch(src Source, h History, n int) []model.Pair {
	if n <= 0 {
		return nil
	}
	options := m.enumerate(src.All(), h)

	var out []model.Pair
	taken := make(map[string]bool)
	busy := make(map[string]bool)
	for len(out) < n {
		eligible := filter(options, taken, busy)
		var fresh []option
		for _, o := range eligible {
			if o.shown == 0 {
				fresh = append(fresh, o)
			}
		}

		var pick option
		var ok bool
		switch {
		case len(fresh) > 0:
			pick, ok = m.pickFresh(fresh)
		case m.allowRepeats && len(eligible) > 0:
			pick, ok = m.pickRepeat(eligible)
		}
		if !ok {
			break
		}

		taken[pick.pair.Key()] = true
		if pick.aChallenger {
			busy[pick.pair.A] = true
		}
		if pick.bChallenger {
			busy[pick.pair.B] = true
		}
		out = append(out, m.orient(pick.pair))
	}
	return out
}

func (m *Matchmaker) enumerate(cands []model.Candidate, h History) []option {
	options := make([]option, 0, len(cands)*(len(cands)-1)/2)
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			a, b := cands[i], cands[j]
			p := model.Pair{A: a.ID, B: b.ID}
			o := option{
				pair:  p,
				gap:   math.Abs(a.Rating - b.Rating),
				shown: h.Count(p),
				last:  h.LastShown(p),
			}
			if a.Origin == model.Challenger {
				o.aChallenger = true
				o.challengers++
			}
			if b.Origin == model.Challenger {
				o.bChallenger = true
				o.challengers++
			}
			options = append(options, o)
		}
	}
	return options
}

// filter drops pairs already taken for the batch and pairs that would put a
// busy challenger in a second concurrent round.
func filter(options []option, taken, busy map[string]bool) []option {
	out := make([]option, 0, len(options))
	for _, o := range options {
		if taken[o.pair.Key()] {
			continue
		}
		if busy[o.pair.A] || busy[o.pair.B] {
			continue
		}
		out = append(out, o)
	}
	return out
}
