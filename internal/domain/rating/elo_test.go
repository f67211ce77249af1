package rating_test

import (
	"testing"

	"github.com/arenalab/policy-arena/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpected(t *testing.T) {
	Convey("Given the logistic expected-score formula", t, func() {
		Convey("When both ratings are equal", func() {
			So(rating.Expected(1500, 1500), ShouldEqual, 0.5)
		})

		Convey("When A is rated 400 points above B", func() {
			ea := rating.Expected(1900, 1500)

			Convey("Then A's expectation is ten-to-one", func() {
				So(ea, ShouldAlmostEqual, 10.0/11.0, 1e-12)
			})
		})

		Convey("When the ratings are swapped", func() {
			ea := rating.Expected(1600, 1450)
			eb := rating.Expected(1450, 1600)

			Convey("Then the expectations are complementary", func() {
				So(ea+eb, ShouldAlmostEqual, 1.0, 1e-12)
			})
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given two freshly seeded policies", t, func() {
		Convey("When A wins", func() {
			newA, newB := rating.Update(1500, 1500, rating.ScoreWin)

			Convey("Then A gains exactly half of K and B loses the same", func() {
				So(newA, ShouldEqual, 1516.0)
				So(newB, ShouldEqual, 1484.0)
			})
		})

		Convey("When A loses", func() {
			newA, newB := rating.Update(1500, 1500, rating.ScoreLoss)

			So(newA, ShouldEqual, 1484.0)
			So(newB, ShouldEqual, 1516.0)
		})

		Convey("When the pair draws at equal ratings", func() {
			newA, newB := rating.Update(1500, 1500, rating.ScoreDraw)

			Convey("Then neither rating moves", func() {
				So(newA, ShouldEqual, 1500.0)
				So(newB, ShouldEqual, 1500.0)
			})
		})
	})

	Convey("Given unequal ratings", t, func() {
		Convey("When the favorite wins", func() {
			newA, newB := rating.Update(1600, 1400, rating.ScoreWin)

			Convey("Then the exchange is small and zero-sum", func() {
				deltaA := newA - 1600
				deltaB := newB - 1400
				So(deltaA, ShouldBeGreaterThan, 0)
				So(deltaA, ShouldBeLessThan, rating.KFactor/2)
				So(deltaA, ShouldAlmostEqual, -deltaB, 1e-9)
			})
		})

		Convey("When the underdog wins", func() {
			newA, newB := rating.Update(1400, 1600, rating.ScoreWin)

			Convey("Then the underdog gains more than half of K", func() {
				So(newA-1400, ShouldBeGreaterThan, rating.KFactor/2)
				So(newA-1400, ShouldAlmostEqual, -(newB - 1600), 1e-9)
			})
		})

		Convey("When results are rounded", func() {
			newA, _ := rating.Update(1512.34, 1498.76, rating.ScoreWin)

			Convey("Then the result carries at most two decimals", func() {
				So(newA, ShouldEqual, rating.Round2(newA))
			})
		})
	})
}

func TestRound2(t *testing.T) {
	Convey("Given the two-decimal rounding helper", t, func() {
		So(rating.Round2(1500.006), ShouldEqual, 1500.01)
		So(rating.Round2(1499.994), ShouldEqual, 1499.99)
		So(rating.Round2(-12.346), ShouldEqual, -12.35)
		So(rating.Round2(1500.0), ShouldEqual, 1500.0)
	})
}
