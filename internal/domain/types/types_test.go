package types_test

import (
	"testing"
	"time"

	types "github.com/okian/bayesrate/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func TestRunSummaryYAML(t *testing.T) {
	Convey("Given a run summary", t, func() {
		rhat := 1.01
		run := types.RunSummary{
			RunID:     "r1",
			Variant:   "institution",
			StartedAt: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
			Parameters: []types.ParameterSummary{
				{Parameter: "population_mean", Label: "population", Mass: 0.95, Intervals: []types.Interval{{Lo: 3.1, Hi: 3.9}}, RHat: &rhat},
				{Parameter: "mean[1]", Label: "Acadia University", Mass: 0.95},
			},
		}

		Convey("When encoding it as YAML", func() {
			out, err := yaml.Marshal(run)
			So(err, ShouldBeNil)

			Convey("Then snake_case keys should be used and missing R-hat omitted", func() {
				text := string(out)
				So(text, ShouldContainSubstring, "run_id: r1")
				So(text, ShouldContainSubstring, "rhat: 1.01")
				So(text, ShouldContainSubstring, "label: Acadia University")

				var back types.RunSummary
				So(yaml.Unmarshal(out, &back), ShouldBeNil)
				So(back.Parameters[1].RHat, ShouldBeNil)
				So(back.Parameters[0].Intervals, ShouldResemble, []types.Interval{{Lo: 3.1, Hi: 3.9}})
			})
		})
	})
}
