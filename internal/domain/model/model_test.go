package model_test

import (
	"testing"

	model "github.com/okian/duel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPair(t *testing.T) {
	convey.Convey("Given a pair", t, func() {
		p := model.Pair{A: "b", B: "a"}

		convey.Convey("Then its key ignores member order", func() {
			convey.So(p.Key(), convey.ShouldEqual, model.Pair{A: "a", B: "b"}.Key())
			convey.So(p.Same(model.Pair{A: "a", B: "b"}), convey.ShouldBeTrue)
			convey.So(p.Same(model.Pair{A: "a", B: "c"}), convey.ShouldBeFalse)
		})

		convey.Convey("Then membership helpers resolve both sides", func() {
			convey.So(p.Contains("a"), convey.ShouldBeTrue)
			convey.So(p.Contains("c"), convey.ShouldBeFalse)
			convey.So(p.Other("a"), convey.ShouldEqual, "b")
			convey.So(p.Other("b"), convey.ShouldEqual, "a")
		})

		convey.Convey("Then keys of different pairs do not collide on concatenation", func() {
			convey.So(model.Pair{A: "ab", B: "c"}.Key(), convey.ShouldNotEqual, model.Pair{A: "a", B: "bc"}.Key())
		})

		convey.Convey("Then the zero pair reports IsZero", func() {
			convey.So(model.Pair{}.IsZero(), convey.ShouldBeTrue)
			convey.So(p.IsZero(), convey.ShouldBeFalse)
		})
	})
}

func TestLabels(t *testing.T) {
	convey.Convey("Given origin and outcome values", t, func() {
		convey.So(model.Established.String(), convey.ShouldEqual, "established")
		convey.So(model.Challenger.String(), convey.ShouldEqual, "challenger")
		convey.So(model.AWinsB.String(), convey.ShouldEqual, "a_wins")
		convey.So(model.BWinsA.String(), convey.ShouldEqual, "b_wins")
		convey.So(model.Skipped.String(), convey.ShouldEqual, "skipped")
		convey.So(model.Outcome(42).String(), convey.ShouldEqual, "unknown")
	})

	convey.Convey("Given a commit", t, func() {
		convey.So(model.Commit{}.Empty(), convey.ShouldBeTrue)
		convey.So(model.Commit{Updates: []model.RatingUpdate{{PersistedID: "x", FinalRating: 1}}}.Empty(), convey.ShouldBeFalse)
	})
}
