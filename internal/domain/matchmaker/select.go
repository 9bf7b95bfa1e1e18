package matchmaker

import (
	"sort"

	"github.com/okian/duel/internal/domain/model"
)

// pickFresh ranks unseen pairs by gap, then by challenger count, and breaks
// the remaining tie with the random source. Gaps within the tie epsilon of
// the smallest gap form one band.
func (m *Matchmaker) pickFresh(options []option) (option, bool) {
	if len(options) == 0 {
		return option{}, false
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].gap < options[j].gap
	})

	band := m.band(options)
	fewest := band[0].challengers
	for _, o := range band[1:] {
		fewest = min(fewest, o.challengers)
	}
	tied := make([]option, 0, len(band))
	for _, o := range band {
		if o.challengers == fewest {
			tied = append(tied, o)
		}
	}
	return tied[m.rng.Intn(len(tied))], true
}

// pickRepeat prefers the least-shown pair, then the smallest gap, then the
// pair shown longest ago.
func (m *Matchmaker) pickRepeat(options []option) (option, bool) {
	if len(options) == 0 {
		return option{}, false
	}
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.shown != b.shown {
			return a.shown < b.shown
		}
		return a.gap < b.gap
	})

	least := options[:1]
	for len(least) < len(options) && options[len(least)].shown == options[0].shown {
		least = options[:len(least)+1]
	}
	band := m.band(least)
	best := band[0]
	for _, o := range band[1:] {
		if o.last < best.last {
			best = o
		}
	}
	return best, true
}

// band returns the leading options whose gap is within the tie epsilon of
// the first one. options must be sorted by gap.
func (m *Matchmaker) band(options []option) []option {
	end := 1
	for end < len(options) && m.sameGap(options[end].gap, options[0].gap) {
		end++
	}
	return options[:end]
}

// orient decides which member is presented first.
func (m *Matchmaker) orient(p model.Pair) model.Pair {
	if m.shuffleSides && m.rng.Intn(2) == 1 {
		return model.Pair{A: p.B, B: p.A}
	}
	return p
}

func (m *Matchmaker) sameGap(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= m.tieEpsilon
}
