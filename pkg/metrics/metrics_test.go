package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "bayesrate")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("sampler"),
				WithHistogramBuckets([]float64{1, 2}),
				WithCustomLabels(map[string]string{"env": "test"}),
			)
			manager.chainsCompleted.WithLabelValues("flat").Inc()

			Convey("Then metric names should carry the custom prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_sampler_chains_completed_total")
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithHistogramBuckets(nil),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "bayesrate")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording sampler progress", func() {
			before := testutil.ToFloat64(globalManager.chainsCompleted.WithLabelValues("unit"))
			RecordChainCompleted("unit", 0.25)
			RecordChainCompleted("unit", 0.5)
			RecordDraws("unit", 300)
			RecordAdaptIterations("unit", 50)

			Convey("Then counters should advance", func() {
				So(testutil.ToFloat64(globalManager.chainsCompleted.WithLabelValues("unit")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.drawsRecorded.WithLabelValues("unit")), ShouldBeGreaterThanOrEqualTo, 300)
			})
		})

		Convey("When recording a multimodal HDR", func() {
			before := testutil.ToFloat64(globalManager.hdrMultimodal.WithLabelValues("unit"))
			RecordHDR("unit", "mean[1]", 0.8, 2)
			RecordHDR("unit", "mean[2]", 0.4, 1)

			Convey("Then only the multimodal estimate should be counted as such", func() {
				So(testutil.ToFloat64(globalManager.hdrMultimodal.WithLabelValues("unit")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.hdrWidth.WithLabelValues("unit", "mean[2]")), ShouldEqual, 0.4)
			})
		})

		Convey("When recording gauges and errors", func() {
			So(func() {
				UpdateDatasetRecords("Acadia University", 512)
				UpdateDatasetGroups("institution", 5)
				UpdateConvergence("unit", "population_mean", 1.01)
				IncActiveChains()
				DecActiveChains()
				RecordPlotWritten("unit")
				RecordRun("unit", "success", 3.2)
				RecordError("dataset", "missing_file")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given recorded metrics", t, func() {
		RecordRun("textfile", "success", 1)
		dir := t.TempDir()

		Convey("When writing them to a nested textfile path", func() {
			path := filepath.Join(dir, "nested", "bayesrate.prom")
			err := WriteTextfile(path)

			Convey("Then the file should hold the exposition format", func() {
				So(err, ShouldBeNil)
				b, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(b), "bayesrate_pipeline_runs_total"), ShouldBeTrue)
			})
		})

		Convey("When the path is empty", func() {
			Convey("Then nothing should be written", func() {
				So(WriteTextfile(""), ShouldBeNil)
			})
		})

		Convey("When the GetRegistry accessor is used", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
