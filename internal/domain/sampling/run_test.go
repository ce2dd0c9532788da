package sampling_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bayesrate/internal/adapters/gibbs"
	"github.com/okian/bayesrate/internal/domain/model"
	"github.com/okian/bayesrate/internal/domain/sampling"
	"github.com/okian/bayesrate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// counterEngine produces draws seed*1000 + sweep number, which makes row
// placement checkable.
type counterEngine struct {
	failAt int
}

type counterCompiled struct {
	spec   *model.Spec
	failAt int
}

type counterChain struct {
	base   float64
	sweep  int
	failAt int
}

func (e counterEngine) Compile(spec *model.Spec, _ []float64) (sampling.Compiled, error) {
	return &counterCompiled{spec: spec, failAt: e.failAt}, nil
}

func (c *counterCompiled) NewChain(seed int64) (sampling.Chain, error) {
	return &counterChain{base: float64(seed) * 1000, failAt: c.failAt}, nil
}

func (c *counterChain) Adapt(n int) error {
	c.sweep += n
	return nil
}

func (c *counterChain) Step() error {
	c.sweep++
	if c.failAt > 0 && c.sweep >= c.failAt {
		return errors.New("boom")
	}
	return nil
}

func (c *counterChain) Values(dst map[string][]float64) {
	for _, vals := range dst {
		for k := range vals {
			vals[k] = c.base + float64(c.sweep)
		}
	}
}

func institutionSpec() *model.Spec {
	spec, err := model.Build(model.ByInstitution, model.Hyper{
		Mean:      model.NormalPrior{Mode: 3.6, Precision: 0.5},
		Precision: model.GammaPrior{Shape: 2, Rate: 2},
	}, model.Grouping{
		Institutions: []string{"a", "b", "c"},
		Institution:  []int{1, 1, 2, 2, 3, 3},
	})
	if err != nil {
		panic(err)
	}
	return spec
}

var ratings = []float64{3.1, 2.9, 3.6, 3.4, 4.1, 3.9}

func TestRun(t *testing.T) {
	Convey("Given an institution model", t, func() {
		ctx := context.Background()
		spec := institutionSpec()
		cfg := sampling.Config{Chains: 3, AdaptIterations: 5, Iterations: 4, Seed: 10, Parallelism: 2}

		Convey("When sampling every parameter", func() {
			table, err := sampling.Run(ctx, counterEngine{}, spec, ratings, cfg)
			So(err, ShouldBeNil)

			Convey("Then rows should equal chains times iterations", func() {
				So(table.Rows(), ShouldEqual, 12)
				So(table.Chains(), ShouldEqual, 3)
			})

			Convey("Then every element should have its own column", func() {
				So(table.Columns(), ShouldResemble, []string{
					"mean[1]", "mean[2]", "mean[3]", "population_mean", "precision", "population_precision",
				})
			})

			Convey("Then each chain should own its row range after adaptation", func() {
				for c := range 3 {
					draws, err := table.ChainColumn("mean[2]", c)
					So(err, ShouldBeNil)
					base := float64(10+c) * 1000
					So(draws, ShouldResemble, []float64{base + 6, base + 7, base + 8, base + 9})
				}
			})
		})

		Convey("When monitoring a subset", func() {
			cfg.Monitor = []string{"population_mean", "mean"}
			table, err := sampling.Run(ctx, counterEngine{}, spec, ratings, cfg)
			So(err, ShouldBeNil)
			So(table.Columns(), ShouldResemble, []string{"population_mean", "mean[1]", "mean[2]", "mean[3]"})
		})

		Convey("When monitoring an unknown parameter", func() {
			cfg.Monitor = []string{"institution_mean"}
			_, err := sampling.Run(ctx, counterEngine{}, spec, ratings, cfg)
			So(errors.Is(err, sampling.ErrUnknownParameter), ShouldBeTrue)
		})

		Convey("When a chain fails", func() {
			_, err := sampling.Run(ctx, counterEngine{failAt: 7}, spec, ratings, cfg)
			So(errors.Is(err, sampling.ErrChain), ShouldBeTrue)
		})

		Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := sampling.Run(canceled, counterEngine{}, spec, ratings, cfg)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When the configuration is empty", func() {
			_, err := sampling.Run(ctx, counterEngine{}, spec, ratings, sampling.Config{})
			So(errors.Is(err, sampling.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestRunIsDeterministic(t *testing.T) {
	Convey("Given the gibbs engine and a fixed seed", t, func() {
		ctx := context.Background()
		spec := institutionSpec()
		cfg := sampling.Config{Chains: 4, AdaptIterations: 20, Iterations: 50, Seed: 3, Parallelism: 4}

		Convey("When running twice", func() {
			a, err := sampling.Run(ctx, gibbs.New(), spec, ratings, cfg, sampling.WithVariant("institution"), sampling.WithCheckEvery(7))
			So(err, ShouldBeNil)
			b, err := sampling.Run(ctx, gibbs.New(), spec, ratings, cfg, sampling.WithVariant("institution"))
			So(err, ShouldBeNil)

			Convey("Then the merged tables should match exactly", func() {
				for _, col := range a.Columns() {
					x, _ := a.Column(col)
					y, _ := b.Column(col)
					So(x, ShouldResemble, y)
				}
			})
		})
	})
}
