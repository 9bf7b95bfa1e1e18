package history_test

import (
	"testing"

	"github.com/okian/duel/internal/domain/history"
	"github.com/okian/duel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestHistory(t *testing.T) {
	convey.Convey("Given an empty history", t, func() {
		h := history.New()
		ab := model.Pair{A: "a", B: "b"}
		ba := model.Pair{A: "b", B: "a"}
		ac := model.Pair{A: "a", B: "c"}

		convey.Convey("When recording a new pair", func() {
			seen := h.SeenAndRecord(ab)

			convey.Convey("Then it reports it as unseen and records it", func() {
				convey.So(seen, convey.ShouldBeFalse)
				convey.So(h.Count(ab), convey.ShouldEqual, 1)
				convey.So(h.Count(ac), convey.ShouldEqual, 0)
				convey.So(h.LastShown(ab), convey.ShouldEqual, 0)
				convey.So(h.LastShown(ac), convey.ShouldEqual, -1)
			})

			convey.Convey("And recording the same pair in reverse order", func() {
				again := h.SeenAndRecord(ba)

				convey.Convey("Then it is recognised as a repeat", func() {
					convey.So(again, convey.ShouldBeTrue)
					convey.So(h.Count(ab), convey.ShouldEqual, 2)
					convey.So(h.Count(ba), convey.ShouldEqual, 2)
					convey.So(h.LastShown(ab), convey.ShouldEqual, 1)
				})
			})
		})

		convey.Convey("When recording several pairs", func() {
			h.SeenAndRecord(ab)
			h.SeenAndRecord(ac)
			h.SeenAndRecord(ab)

			convey.Convey("Then showing indexes follow presentation order", func() {
				convey.So(h.LastShown(ac), convey.ShouldEqual, 1)
				convey.So(h.LastShown(ab), convey.ShouldEqual, 2)
			})
		})
	})
}
