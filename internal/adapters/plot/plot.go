// Package plot renders HDR density curves and lays them out into grid
// images with gonum/plot.
package plot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/okian/bayesrate/internal/domain/hdr"
	"github.com/okian/bayesrate/pkg/logger"
)

var (
	curveColor  = color.RGBA{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff}
	regionColor = color.RGBA{R: 0x9e, G: 0xc5, B: 0xe6, A: 0xff}
)

// Composer renders single curves and composes them into grids.
type Composer struct {
	width   vg.Length
	height  vg.Length
	tempDir string
	logger  logger.Logger
}

// New creates a Composer. Curves default to 4x3 inches.
func New(opts ...Option) *Composer {
	c := &Composer{
		width:  4 * vg.Inch,
		height: 3 * vg.Inch,
		logger: logger.Get().Named("plot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Render draws the density curve of r with its region shaded. The plot is
// written to a scoped temporary PNG and read back; the file is removed on
// every exit path.
func (c *Composer) Render(r *hdr.Result, title string) (image.Image, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "value"
	p.Y.Label.Text = "density"

	for _, iv := range r.Intervals {
		poly, err := plotter.NewPolygon(regionPoints(r, iv))
		if err != nil {
			return nil, fmt.Errorf("shade %v: %w", iv, err)
		}
		poly.Color = regionColor
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	curve := make(plotter.XYs, len(r.Grid))
	for i := range r.Grid {
		curve[i] = plotter.XY{X: r.Grid[i], Y: r.Density[i]}
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, fmt.Errorf("density curve: %w", err)
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	level, err := plotter.NewLine(plotter.XYs{
		{X: r.Grid[0], Y: r.Threshold},
		{X: r.Grid[len(r.Grid)-1], Y: r.Threshold},
	})
	if err != nil {
		return nil, fmt.Errorf("threshold line: %w", err)
	}
	level.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(level)

	wt, err := p.WriterTo(c.width, c.height, "png")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return c.roundTrip(wt)
}

// roundTrip writes through a temporary file and decodes it back.
func (c *Composer) roundTrip(wt io.WriterTo) (img image.Image, err error) {
	f, err := os.CreateTemp(c.tempDir, "hdr-*.png")
	if err != nil {
		return nil, fmt.Errorf("%w: temp file: %w", ErrWriteImage, err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = fmt.Errorf("%w: remove %s: %w", ErrWriteImage, f.Name(), rmErr)
		}
	}()

	if _, err := wt.WriteTo(f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteImage, f.Name(), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteImage, f.Name(), err)
	}
	img, err = png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrRender, f.Name(), err)
	}
	return img, nil
}

// regionPoints outlines the area under the curve across one interval.
func regionPoints(r *hdr.Result, iv hdr.Interval) plotter.XYs {
	pts := plotter.XYs{{X: iv.Lo, Y: 0}, {X: iv.Lo, Y: r.Threshold}}
	for i, x := range r.Grid {
		if x > iv.Lo && x < iv.Hi {
			pts = append(pts, plotter.XY{X: x, Y: r.Density[i]})
		}
	}
	return append(pts, plotter.XY{X: iv.Hi, Y: r.Threshold}, plotter.XY{X: iv.Hi, Y: 0})
}

// Layout returns the grid shape for n images in at most columns columns.
func Layout(n, columns int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = min(max(columns, 1), n)
	return (n + cols - 1) / cols, cols
}

// Compose lays images out row-major in a grid and writes one PNG to dest.
// Every tile takes the size of the first image.
func (c *Composer) Compose(ctx context.Context, images []image.Image, columns int, dest string) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	rows, cols := Layout(len(images), columns)
	tile := images[0].Bounds()

	bg := image.NewRGBA(image.Rect(0, 0, cols*tile.Dx(), rows*tile.Dy()))
	stddraw.Draw(bg, bg.Bounds(), image.White, image.Point{}, stddraw.Src)
	canvas := vgimg.NewWith(vgimg.UseImage(bg))
	dc := draw.New(canvas)
	tiles := draw.Tiles{Rows: rows, Cols: cols}
	for i, img := range images {
		sub := tiles.At(dc, i%cols, i/cols)
		sub.DrawImage(sub.Rectangle, img)
	}

	if err := c.write(vgimg.PngCanvas{Canvas: canvas}, dest); err != nil {
		return err
	}
	c.logger.Info(ctx, "grid image written",
		logger.String("path", dest),
		logger.Int("plots", len(images)),
		logger.Int("rows", rows),
		logger.Int("columns", cols),
	)
	return nil
}

// WriteSingle writes one image to dest.
func (c *Composer) WriteSingle(ctx context.Context, img image.Image, dest string) error {
	if err := c.write(pngWriter{img}, dest); err != nil {
		return err
	}
	c.logger.Info(ctx, "image written", logger.String("path", dest))
	return nil
}

type pngWriter struct{ img image.Image }

func (p pngWriter) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := png.Encode(cw, p.img)
	return cw.n, err
}

// countingWriter tallies bytes passed to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// write creates parent directories and replaces dest atomically.
func (c *Composer) write(wt io.WriterTo, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteImage, dir, err)
	}
	f, err := os.CreateTemp(dir, ".tmp-*.png")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteImage, dir, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWriteImage, dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteImage, dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteImage, dest, err)
	}
	return nil
}
