package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		So(globalManager, ShouldNotBeNil)
		So(GetRegistry(), ShouldNotBeNil)

		Convey("All recorders accept input without panicking", func() {
			RecordRuleEvaluated("annual_offset")
			RecordRuleError("custom")
			RecordOccurrenceComposed("event")
			RecordConflictGroup()
			RecordEvaluationLatency(12.5)
			UpdateRegistryCounts(2, 5, 3)
			UpdateQueueSize(10)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.1)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			UpdateWorkerCount(4)
			RecordDispatchLatency(3.0)
			RecordDispatchError()
			RecordHooksDispatched(2)
			RecordHTTPRequest("occurrences", "GET", "200")
			RecordHTTPRequestDuration("occurrences", "GET", "200", 1.5)
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(8)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestManagerOptions(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("testing"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithRefreshInterval(5*time.Second),
			WithPrometheusRegistry(registry),
		)

		So(m.namespace, ShouldEqual, "testing")
		So(m.subsystem, ShouldEqual, "unit")
		So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
		So(m.refreshInterval, ShouldEqual, 5*time.Second)

		Convey("Its metrics register under the custom namespace", func() {
			m.conflictGroups.Inc()

			families, err := registry.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "testing_unit_conflict_groups_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
