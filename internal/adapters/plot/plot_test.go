package plot_test

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/bayesrate/internal/adapters/plot"
	"github.com/okian/bayesrate/internal/domain/hdr"
	"github.com/okian/bayesrate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func estimate(mu float64) *hdr.Result {
	d := distuv.Normal{Mu: mu, Sigma: 0.3, Src: rand.NewPCG(1, 2)}
	samples := make([]float64, 2000)
	for i := range samples {
		samples[i] = d.Rand()
	}
	r, err := hdr.Estimate(samples, 0.95)
	if err != nil {
		panic(err)
	}
	return r
}

func decode(path string) image.Image {
	f, err := os.Open(path)
	So(err, ShouldBeNil)
	defer f.Close()
	img, err := png.Decode(f)
	So(err, ShouldBeNil)
	return img
}

func TestLayout(t *testing.T) {
	Convey("Given image counts and a column limit", t, func() {
		for _, tc := range []struct{ n, columns, rows, cols int }{
			{1, 3, 1, 1},
			{3, 3, 1, 3},
			{4, 3, 2, 3},
			{7, 3, 3, 3},
			{5, 0, 5, 1},
			{0, 3, 0, 0},
		} {
			rows, cols := plot.Layout(tc.n, tc.columns)
			So(rows, ShouldEqual, tc.rows)
			So(cols, ShouldEqual, tc.cols)
		}
	})
}

func TestComposer(t *testing.T) {
	Convey("Given a composer with a private temp dir", t, func() {
		ctx := context.Background()
		tmp := t.TempDir()
		out := t.TempDir()
		c := plot.New(plot.WithTempDir(tmp))

		Convey("When rendering a curve", func() {
			img, err := c.Render(estimate(3.5), "population_mean")
			So(err, ShouldBeNil)

			Convey("Then the image should have the default size", func() {
				So(img.Bounds().Dx(), ShouldEqual, 384)
				So(img.Bounds().Dy(), ShouldEqual, 288)
			})

			Convey("Then the scoped temp file should be gone", func() {
				entries, err := os.ReadDir(tmp)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When composing five curves in three columns", func() {
			var images []image.Image
			for _, mu := range []float64{3.0, 3.2, 3.4, 3.6, 3.8} {
				img, err := c.Render(estimate(mu), "mean")
				So(err, ShouldBeNil)
				images = append(images, img)
			}
			dest := filepath.Join(out, "plots", "institution_hdr.png")
			So(c.Compose(ctx, images, 3, dest), ShouldBeNil)

			Convey("Then the grid should hold one tile per curve", func() {
				got := decode(dest)
				rows, cols := plot.Layout(len(images), 3)
				So(got.Bounds().Dx(), ShouldEqual, cols*images[0].Bounds().Dx())
				So(got.Bounds().Dy(), ShouldEqual, rows*images[0].Bounds().Dy())
			})

			Convey("Then composing again should overwrite the file", func() {
				So(c.Compose(ctx, images[:2], 3, dest), ShouldBeNil)
				got := decode(dest)
				So(got.Bounds().Dx(), ShouldEqual, 2*images[0].Bounds().Dx())
				So(got.Bounds().Dy(), ShouldEqual, images[0].Bounds().Dy())

				entries, err := os.ReadDir(filepath.Dir(dest))
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When writing a single image", func() {
			img, err := c.Render(estimate(3.6), "population_mean")
			So(err, ShouldBeNil)
			dest := filepath.Join(out, "flat_hdr.png")
			So(c.WriteSingle(ctx, img, dest), ShouldBeNil)
			So(decode(dest).Bounds(), ShouldResemble, img.Bounds())
		})

		Convey("When composing nothing", func() {
			err := c.Compose(ctx, nil, 3, filepath.Join(out, "x.png"))
			So(errors.Is(err, plot.ErrNoImages), ShouldBeTrue)
		})

		Convey("When the destination cannot be created", func() {
			blocker := filepath.Join(out, "file")
			So(os.WriteFile(blocker, []byte("x"), 0o600), ShouldBeNil)
			img, err := c.Render(estimate(3.6), "x")
			So(err, ShouldBeNil)
			err = c.WriteSingle(ctx, img, filepath.Join(blocker, "sub", "x.png"))
			So(errors.Is(err, plot.ErrWriteImage), ShouldBeTrue)
		})
	})
}
