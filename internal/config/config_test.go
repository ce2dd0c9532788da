package config_test

import (
	"errors"
	"testing"

	"github.com/okian/bayesrate/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the per-variant sampler budgets", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			for _, v := range cfg.Variants {
				convey.So(v.Chains, convey.ShouldEqual, 5)
				convey.So(v.Adapt, convey.ShouldEqual, 2500)
			}
			flat, _ := cfg.Variant("flat")
			convey.So(flat.Iterations, convey.ShouldEqual, 10_000)
			nested, _ := cfg.Variant("department_within_institution")
			convey.So(nested.Iterations, convey.ShouldEqual, 50_000)
		})

		convey.Convey("Then the two prior sets should differ by variant", func() {
			inst, _ := cfg.Variant("institution")
			dept, _ := cfg.Variant("department")
			convey.So(inst.Prior, convey.ShouldResemble, config.Prior{Mode: 3.6, Precision: 0.5, Shape: 2, Rate: 2})
			convey.So(dept.Prior, convey.ShouldResemble, config.Prior{Mode: 3.5, Precision: 0.5, Shape: 0.01, Rate: 0.01})
		})

		convey.Convey("Then an unknown variant should not be found", func() {
			_, ok := cfg.Variant("by_course")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		convey.Convey("When two institutions share a name", func() {
			cfg.Institutions = append(cfg.Institutions, cfg.Institutions[0])

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When two variants share a name", func() {
			cfg.Variants = append(cfg.Variants, cfg.Variants[0])

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file pattern has no verb", func() {
			cfg.FilePattern = "ratings.csv"

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a gamma rate is not positive", func() {
			cfg.Variants[1].Prior.Rate = 0

			convey.Convey("Then validation should fail", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Rate")
			})
		})
	})
}
