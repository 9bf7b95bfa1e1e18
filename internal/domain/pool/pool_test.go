package pool_test

import (
	"errors"
	"testing"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/pool"
	. "github.com/smartystreets/goconvey/convey"
)

func established(id string, rating float64) model.Candidate {
	return model.Candidate{ID: id, Origin: model.Established, Rating: rating, Display: model.Display{Name: id}}
}

func challenger(id string) model.Candidate {
	// Rating set on purpose; the pool must ignore it.
	return model.Candidate{ID: id, Origin: model.Challenger, Rating: 9999, Display: model.Display{Name: id}}
}

func TestNew(t *testing.T) {
	Convey("Given established and challenger candidates", t, func() {
		p, err := pool.New(
			[]model.Candidate{established("a", 1000), established("b", 1400)},
			[]model.Candidate{challenger("c"), challenger("d")},
		)
		So(err, ShouldBeNil)

		Convey("Then challengers start at the established mean", func() {
			So(p.Baseline(), ShouldEqual, 1200.0)
			c, ok := p.Get("c")
			So(ok, ShouldBeTrue)
			So(c.Rating, ShouldEqual, 1200.0)
			So(c.Origin, ShouldEqual, model.Challenger)
		})

		Convey("Then All keeps insertion order with current ratings", func() {
			all := p.All()
			So(len(all), ShouldEqual, 4)
			So(all[0].ID, ShouldEqual, "a")
			So(all[3].ID, ShouldEqual, "d")
			So(all[1].Rating, ShouldEqual, 1400.0)
		})

		Convey("When ratings move mid-session", func() {
			So(p.SetRating("a", 1600), ShouldBeNil)

			Convey("Then the challenger baseline is not recomputed", func() {
				So(p.Baseline(), ShouldEqual, 1200.0)
				d, _ := p.Get("d")
				So(d.Rating, ShouldEqual, 1200.0)
			})
		})

		Convey("When promoting a challenger twice", func() {
			first, err1 := p.Promote("c")
			second, err2 := p.Promote("c")

			Convey("Then only the first promotion reports a change", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				c, _ := p.Get("c")
				So(c.Origin, ShouldEqual, model.Established)
				So(p.Count(model.Challenger), ShouldEqual, 1)
				So(p.Count(model.Established), ShouldEqual, 3)
			})
		})

		Convey("When promoting an unknown id", func() {
			_, err := p.Promote("nope")
			So(errors.Is(err, pool.ErrUnknownCandidate), ShouldBeTrue)
		})
	})

	Convey("Given only challengers", t, func() {
		p, err := pool.New(nil, []model.Candidate{challenger("x"), challenger("y")}, pool.WithDefaultRating(1500))

		Convey("Then they start at the default rating", func() {
			So(err, ShouldBeNil)
			x, _ := p.Get("x")
			So(x.Rating, ShouldEqual, 1500.0)
		})
	})

	Convey("Given fewer than two distinct candidates", t, func() {
		Convey("When the pool is empty", func() {
			_, err := pool.New(nil, nil)
			So(errors.Is(err, pool.ErrInsufficientCandidates), ShouldBeTrue)
		})

		Convey("When the only two entries share an id", func() {
			_, err := pool.New([]model.Candidate{established("a", 1200)}, []model.Candidate{challenger("a")})
			So(errors.Is(err, pool.ErrInsufficientCandidates), ShouldBeTrue)
		})
	})

	Convey("Given a candidate without an id", t, func() {
		_, err := pool.New([]model.Candidate{established("", 1200), established("b", 1200)}, nil)
		So(errors.Is(err, pool.ErrInvalidCandidate), ShouldBeTrue)
	})
}
