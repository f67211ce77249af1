package service

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		Convey("When Start is called again", func() {
			err := svc.Start(ctx)

			Convey("Then it is a no-op", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When stats are requested", func() {
			_, err := svc.SubmitSession(ctx, twoPolicySubmission(true, false))
			So(err, ShouldBeNil)

			stats := svc.GetStats()

			Convey("Then collection totals are reported", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["totalPolicies"], ShouldEqual, 2)
				So(stats["totalSessions"], ShouldEqual, 1)
				So(stats["totalDatasets"], ShouldEqual, 0)
			})
		})

		Convey("When the service is stopped twice", func() {
			svc.Stop()
			So(svc.Stop, ShouldNotPanic)

			Convey("Then stats only report configuration", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeFalse)
				_, hasTotals := stats["totalPolicies"]
				So(hasTotals, ShouldBeFalse)
			})
		})
	})
}
