package metrics_test

import (
	"testing"

	"github.com/arenalab/policy-arena/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithPrometheusRegistry(reg),
			metrics.WithNamespace("test"),
			metrics.WithSubsystem("arena"),
		)

		Convey("Then construction registers every metric without panicking", func() {
			So(m, ShouldNotBeNil)

			families, err := reg.Gather()
			So(err, ShouldBeNil)
			// Counters only appear after first use; gauges and histograms
			// register immediately.
			So(len(families), ShouldBeGreaterThan, 0)
		})

		Convey("When custom buckets are supplied", func() {
			reg2 := prometheus.NewRegistry()
			m2 := metrics.NewManager(
				metrics.WithPrometheusRegistry(reg2),
				metrics.WithHistogramBuckets([]float64{1, 10, 100}),
			)

			So(m2, ShouldNotBeNil)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("When recording engine activity", func() {
			So(func() {
				metrics.RecordSessionIngested("manual")
				metrics.RecordRoundsIngested(10)
				metrics.RecordRatingUpdate()
				metrics.RecordDrawRecorded()
				metrics.RecordReplay(12.5)
				metrics.RecordSessionDeleted()
				metrics.UpdateTotalPolicies(3)
				metrics.UpdateTotalSessions(2)
			}, ShouldNotPanic)
		})

		Convey("When recording pipeline and HTTP activity", func() {
			So(func() {
				metrics.RecordStoreUpdateLatency(1.5)
				metrics.RecordStoreQueryLatency(0.5)
				metrics.UpdateQueueSize(1)
				metrics.RecordQueueEnqueue()
				metrics.RecordQueueDequeue()
				metrics.RecordStatsRefresh()
				metrics.RecordHubFetchLatency(42)
				metrics.RecordHTTPRequest("leaderboard", "GET", "200")
				metrics.RecordHTTPRequestDuration("leaderboard", "GET", "200", 3.2)
				metrics.RecordErrorByComponent("store", "not_found")
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed for the metrics handler", func() {
			So(metrics.GetRegistry(), ShouldNotBeNil)
		})
	})
}
