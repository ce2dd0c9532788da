package app_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bayesrate/internal/adapters/report"
	"github.com/okian/bayesrate/internal/adapters/repository"
	"github.com/okian/bayesrate/internal/app"
	"github.com/okian/bayesrate/internal/config"
	"github.com/okian/bayesrate/internal/domain/dataset"
	"github.com/okian/bayesrate/internal/domain/types"
	"github.com/okian/bayesrate/internal/synthdata"
	"github.com/okian/bayesrate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// testConfig points a small configuration at root. Three institutions with
// well separated true means, each split into two departments, feed every
// variant.
func testConfig(root string) *config.Config {
	prior := config.Prior{Mode: 3.6, Precision: 0.5, Shape: 2, Rate: 2}
	cfg := config.New()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutputDir = filepath.Join(root, "plots")
	cfg.ReportDir = filepath.Join(root, "reports")
	cfg.Parallelism = 2
	cfg.Institutions = []config.Institution{
		{Name: "Low University", Abbrev: "low"},
		{Name: "Mid University", Abbrev: "mid"},
		{Name: "High University", Abbrev: "high"},
	}
	cfg.Variants = []config.Variant{
		{Name: "flat", Topology: "flat", Chains: 2, Adapt: 100, Iterations: 500, Prior: prior},
		{Name: "institution", Topology: "institution", Chains: 2, Adapt: 200, Iterations: 1000, Prior: prior},
		{Name: "department", Topology: "department", Chains: 2, Adapt: 200, Iterations: 1000, Prior: prior},
		{Name: "nested", Topology: "department_within_institution", Chains: 2, Adapt: 200, Iterations: 1000, Prior: prior},
	}
	return cfg
}

var departments = []string{"Biology", "History"}

func generate(ctx context.Context, dir string) error {
	_, err := synthdata.Generate(ctx, synthdata.Config{
		Dir:  dir,
		Seed: 7,
		Institutions: []synthdata.Institution{
			{Abbrev: "low", Mean: 3.0, SD: 0.5, Count: 50, Departments: departments},
			{Abbrev: "mid", Mean: 3.5, SD: 0.5, Count: 50, Departments: departments},
			{Abbrev: "high", Mean: 4.0, SD: 0.5, Count: 50, Departments: departments},
		},
	})
	return err
}

func TestPipeline_Run(t *testing.T) {
	Convey("Given three institutions with ordered true means", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		cfg := testConfig(root)
		So(generate(ctx, cfg.DataDir), ShouldBeNil)

		var (
			out bytes.Buffer
			ids int
		)
		store, err := repository.Open(ctx, filepath.Join(root, "archive.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		p := app.New(cfg,
			app.WithReporter(report.New(report.WithOutput(&out), report.WithDir(cfg.ReportDir))),
			app.WithStore(store),
			app.WithRunIDs(func() string {
				ids++
				return fmt.Sprintf("run-%d", ids)
			}),
		)

		Convey("When running the institution variant", func() {
			run, err := p.Run(ctx, "institution")
			So(err, ShouldBeNil)

			Convey("Then every institution mean should be summarized in order", func() {
				So(run.Records, ShouldEqual, 150)
				So(len(run.Parameters), ShouldEqual, 4)
				So(run.Parameters[0].Parameter, ShouldEqual, "population_mean")
				So(run.Parameters[1].Label, ShouldEqual, "Low University")
				So(run.Parameters[3].Parameter, ShouldEqual, "mean[3]")

				low, mid, high := run.Parameters[1].Center, run.Parameters[2].Center, run.Parameters[3].Center
				So(low, ShouldBeLessThan, mid)
				So(mid, ShouldBeLessThan, high)
				So(run.Parameters[0].Center, ShouldBeBetween, low, high)
				for _, ps := range run.Parameters {
					So(ps.RHat, ShouldNotBeNil)
					So(len(ps.Intervals), ShouldBeGreaterThan, 0)
				}

				So(out.String(), ShouldContainSubstring, "mean[2] (Mid University)")
				So(out.String(), ShouldContainSubstring, "95% HDR")
			})

			Convey("Then the image, summary and archive should be written", func() {
				So(run.Image, ShouldEqual, filepath.Join(cfg.OutputDir, "institution_hdr.png"))
				_, err := os.Stat(run.Image)
				So(err, ShouldBeNil)
				_, err = os.Stat(filepath.Join(cfg.ReportDir, "institution_summary.json"))
				So(err, ShouldBeNil)

				runs, err := store.Runs(ctx, "institution", 10)
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
				So(runs[0].ID, ShouldEqual, "run-1")
				params, err := store.Parameters(ctx, "run-1")
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 4)
			})
		})

		Convey("When running the flat variant", func() {
			run, err := p.Run(ctx, "flat")
			So(err, ShouldBeNil)

			Convey("Then only the population mean should be summarized into one image", func() {
				So(len(run.Parameters), ShouldEqual, 1)
				So(run.Parameters[0].Center, ShouldBeBetween, 3.0, 4.0)
				entries, err := os.ReadDir(cfg.OutputDir)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Name(), ShouldEqual, "flat_hdr.png")
			})
		})

		Convey("When running the department variant", func() {
			run, err := p.Run(ctx, "department")
			So(err, ShouldBeNil)

			Convey("Then each department mean should be summarized", func() {
				So(len(run.Parameters), ShouldEqual, 3)
				So(run.Parameters[1].Parameter, ShouldEqual, "mean[1]")
				So(run.Parameters[1].Label, ShouldEqual, "Biology")
				So(run.Parameters[2].Label, ShouldEqual, "History")
			})
		})

		Convey("When running the nested variant", func() {
			run, err := p.Run(ctx, "nested")
			So(err, ShouldBeNil)

			Convey("Then institution means should precede the departments nested in them", func() {
				var names []string
				for _, ps := range run.Parameters {
					names = append(names, ps.Parameter)
				}
				So(names, ShouldResemble, []string{
					"population_mean",
					"institution_mean[1]", "institution_mean[2]", "institution_mean[3]",
					"mean[1]", "mean[2]", "mean[3]", "mean[4]", "mean[5]", "mean[6]",
				})
				So(run.Parameters[1].Label, ShouldEqual, "Low University")
				So(run.Parameters[3].Label, ShouldEqual, "High University")
				So(run.Parameters[4].Label, ShouldEqual, "low/Biology")
				So(run.Parameters[1].Center, ShouldBeLessThan, run.Parameters[3].Center)
				So(out.String(), ShouldContainSubstring, "institution_mean[2] (Mid University)")
			})
		})

		Convey("When running every variant", func() {
			runs, err := p.RunAll(ctx, cfg.VariantNames())

			Convey("Then each should produce a run", func() {
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 4)
				So(runs[0].Variant, ShouldEqual, "flat")
				So(runs[1].Variant, ShouldEqual, "institution")
				So(runs[2].Variant, ShouldEqual, "department")
				So(runs[3].Variant, ShouldEqual, "nested")
			})
		})

		Convey("When the variant is unknown", func() {
			_, err := p.Run(ctx, "nope")

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, app.ErrUnknownVariant)
			})
		})
	})
}

func TestPipeline_MissingFile(t *testing.T) {
	Convey("Given a configuration naming an institution without a file", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		cfg := testConfig(root)
		So(generate(ctx, cfg.DataDir), ShouldBeNil)
		cfg.Institutions = append(cfg.Institutions, config.Institution{Name: "Ghost College", Abbrev: "ghost"})

		var out bytes.Buffer
		p := app.New(cfg, app.WithReporter(report.New(report.WithOutput(&out), report.WithDir(cfg.ReportDir))))

		Convey("When running every variant", func() {
			runs, err := p.RunAll(ctx, cfg.VariantNames())

			Convey("Then the first variant should fail before writing anything", func() {
				So(err, ShouldWrap, dataset.ErrMissingFile)
				So(runs, ShouldBeEmpty)
				_, statErr := os.Stat(cfg.OutputDir)
				So(os.IsNotExist(statErr), ShouldBeTrue)
				_, statErr = os.Stat(cfg.ReportDir)
				So(os.IsNotExist(statErr), ShouldBeTrue)
				So(out.Len(), ShouldEqual, 0)
			})
		})
	})
}

// failingStore rejects every archived run.
type failingStore struct{ repository.Store }

func (failingStore) SaveRun(context.Context, *types.RunSummary) error {
	return repository.ErrArchive
}

func TestPipeline_NoPartialOutputs(t *testing.T) {
	Convey("Given generated data and a pipeline whose last step will fail", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		cfg := testConfig(root)
		So(generate(ctx, cfg.DataDir), ShouldBeNil)
		var out bytes.Buffer

		Convey("When the summary directory cannot be created", func() {
			blocked := filepath.Join(root, "blocked")
			So(os.WriteFile(blocked, []byte("file"), 0o644), ShouldBeNil)
			cfg.ReportDir = filepath.Join(blocked, "reports")
			p := app.New(cfg, app.WithReporter(report.New(report.WithOutput(&out), report.WithDir(cfg.ReportDir))))

			_, err := p.Run(ctx, "institution")

			Convey("Then the run should fail and leave no image behind", func() {
				So(err, ShouldWrap, report.ErrWriteSummary)
				entries, readErr := os.ReadDir(cfg.OutputDir)
				So(readErr, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the archive rejects the run", func() {
			p := app.New(cfg,
				app.WithReporter(report.New(report.WithOutput(&out), report.WithDir(cfg.ReportDir))),
				app.WithStore(failingStore{}),
			)

			_, err := p.Run(ctx, "institution")

			Convey("Then neither the image nor the summary should remain", func() {
				So(err, ShouldWrap, repository.ErrArchive)
				entries, readErr := os.ReadDir(cfg.OutputDir)
				So(readErr, ShouldBeNil)
				So(entries, ShouldBeEmpty)
				entries, readErr = os.ReadDir(cfg.ReportDir)
				So(readErr, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})
	})
}
