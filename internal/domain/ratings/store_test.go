package ratings_test

import (
	"errors"
	"testing"

	"github.com/okian/duel/internal/domain/ratings"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		s := ratings.New()
		So(s.Seed("a", 1200), ShouldBeNil)
		So(s.Seed("b", 1300), ShouldBeNil)
		So(s.Seed("c", 1100), ShouldBeNil)

		Convey("Then it reports seeded values", func() {
			r, ok := s.Get("b")
			So(ok, ShouldBeTrue)
			So(r, ShouldEqual, 1300.0)
			So(s.Len(), ShouldEqual, 3)
			So(s.Snapshot(), ShouldResemble, map[string]float64{"a": 1200, "b": 1300, "c": 1100})
			So(s.Changed(), ShouldBeEmpty)
		})

		Convey("When seeding a duplicate id", func() {
			err := s.Seed("a", 999)

			Convey("Then it fails and keeps the original value", func() {
				So(errors.Is(err, ratings.ErrDuplicateID), ShouldBeTrue)
				r, _ := s.Get("a")
				So(r, ShouldEqual, 1200.0)
			})
		})

		Convey("When setting ratings", func() {
			So(s.Set("c", 1110), ShouldBeNil)
			So(s.Set("a", 1190), ShouldBeNil)
			So(s.Set("c", 1120), ShouldBeNil)

			Convey("Then changes are tracked in first-change order", func() {
				So(s.Changed(), ShouldResemble, []string{"c", "a"})
				So(s.Changed(), ShouldNotContain, "b")
				r, _ := s.Get("c")
				So(r, ShouldEqual, 1120.0)
			})
		})

		Convey("When writing an identical value", func() {
			So(s.Set("b", 1300), ShouldBeNil)

			Convey("Then no change is recorded", func() {
				So(s.Changed(), ShouldBeEmpty)
			})
		})

		Convey("When setting an unknown id", func() {
			err := s.Set("zzz", 1)

			Convey("Then it fails", func() {
				So(errors.Is(err, ratings.ErrUnknownID), ShouldBeTrue)
			})
		})

		Convey("When mutating a snapshot", func() {
			snap := s.Snapshot()
			snap["a"] = 0

			Convey("Then the store is unaffected", func() {
				r, _ := s.Get("a")
				So(r, ShouldEqual, 1200.0)
			})
		})
	})
}
