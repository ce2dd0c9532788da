// Package app wires the dataset combiner, model specifier, sampler, HDR
// summarizer and plot composer into runnable model variants.
package app

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bayesrate/internal/adapters/gibbs"
	"github.com/okian/bayesrate/internal/adapters/plot"
	"github.com/okian/bayesrate/internal/adapters/report"
	"github.com/okian/bayesrate/internal/adapters/repository"
	"github.com/okian/bayesrate/internal/config"
	"github.com/okian/bayesrate/internal/domain/dataset"
	"github.com/okian/bayesrate/internal/domain/hdr"
	"github.com/okian/bayesrate/internal/domain/model"
	"github.com/okian/bayesrate/internal/domain/posterior"
	"github.com/okian/bayesrate/internal/domain/sampling"
	"github.com/okian/bayesrate/internal/domain/types"
	"github.com/okian/bayesrate/pkg/logger"
	"github.com/okian/bayesrate/pkg/metrics"
)

// Pipeline runs configured model variants end to end.
type Pipeline struct {
	cfg      *config.Config
	engine   sampling.Engine
	composer *plot.Composer
	reporter *report.Reporter
	store    repository.Store
	newID    func() string
	logger   logger.Logger
}

// New constructs a Pipeline for cfg. The Gibbs engine, a default composer
// and a reporter built from cfg are used unless overridden.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		engine:   gibbs.New(),
		composer: plot.New(),
		reporter: report.New(
			report.WithDir(cfg.ReportDir),
			report.WithFormat(cfg.ReportFormat),
			report.WithRHatWarn(cfg.RHatWarn),
		),
		newID:  uuid.NewString,
		logger: logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunAll runs variants in order and stops at the first failure.
func (p *Pipeline) RunAll(ctx context.Context, names []string) ([]*types.RunSummary, error) {
	out := make([]*types.RunSummary, 0, len(names))
	for _, name := range names {
		run, err := p.Run(ctx, name)
		if err != nil {
			return out, fmt.Errorf("variant %s: %w", name, err)
		}
		out = append(out, run)
	}
	return out, nil
}

// Run executes one variant. Images, summary file and archive rows are
// written only after every parameter has been summarized.
func (p *Pipeline) Run(ctx context.Context, name string) (run *types.RunSummary, err error) {
	v, ok := p.cfg.Variant(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	started := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.RecordRun(v.Name, status, time.Since(started).Seconds())
	}()

	topology, err := model.ParseTopology(v.Topology)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Combine(ctx, p.institutions(),
		dataset.WithDir(p.cfg.DataDir),
		dataset.WithFilePattern(p.cfg.FilePattern),
		dataset.WithColumns(p.cfg.Columns.Department, p.cfg.Columns.Rating),
		dataset.WithExcludeUnrated(p.cfg.ExcludeUnrated),
	)
	if err != nil {
		return nil, err
	}

	spec, err := model.Build(topology, hyper(v.Prior), model.GroupingFrom(ds))
	if err != nil {
		metrics.RecordError("model", "build")
		return nil, err
	}
	p.logger.Debug(ctx, "model specified", logger.String("variant", v.Name), logger.String("model", spec.String()))

	groups := groupLevels(spec)
	monitor := []string{model.PopulationMean}
	for _, l := range groups {
		monitor = append(monitor, l.Mean)
	}
	table, err := sampling.Run(ctx, p.engine, spec, ds.Ratings(), sampling.Config{
		Chains:          v.Chains,
		AdaptIterations: v.Adapt,
		Iterations:      v.Iterations,
		Monitor:         monitor,
		Seed:            p.cfg.Seed,
		Parallelism:     p.cfg.Parallelism,
	}, sampling.WithVariant(v.Name))
	if err != nil {
		return nil, err
	}

	run = &types.RunSummary{
		RunID:      p.newID(),
		Variant:    v.Name,
		Topology:   topology.String(),
		StartedAt:  started.UTC(),
		Records:    ds.Len(),
		Chains:     v.Chains,
		Adapt:      v.Adapt,
		Iterations: v.Iterations,
		Seed:       p.cfg.Seed,
		Model:      spec.String(),
	}

	targets := []target{{column: model.PopulationMean, label: "population"}}
	for _, l := range groups {
		for i, label := range l.Labels {
			targets = append(targets, target{column: fmt.Sprintf("%s[%d]", l.Mean, i+1), label: label})
		}
	}

	images := make([]image.Image, 0, len(targets))
	for _, t := range targets {
		summary, img, err := p.summarize(ctx, v.Name, table, t)
		if err != nil {
			metrics.RecordError("hdr", "summarize")
			return nil, fmt.Errorf("summarize %s: %w", t.column, err)
		}
		run.Parameters = append(run.Parameters, summary)
		images = append(images, img)
	}

	run.Duration = time.Since(started)
	if err := p.publish(ctx, run, images, len(groups) > 0); err != nil {
		return nil, err
	}

	p.logger.Info(ctx, "variant finished",
		logger.String("variant", v.Name),
		logger.String("run_id", run.RunID),
		logger.Int("parameters", len(run.Parameters)),
		logger.String("image", run.Image),
		logger.Duration("elapsed", run.Duration),
	)
	return run, nil
}

// publish writes the image, summary file and archive rows of run. The image
// is staged next to its destination and moved into place only after the
// summary is written; any failure removes what this run already wrote.
func (p *Pipeline) publish(ctx context.Context, run *types.RunSummary, images []image.Image, grid bool) (err error) {
	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				p.logger.Warn(ctx, "partial output not removed", logger.String("path", path), logger.Error(rmErr))
			}
		}
	}()

	run.Image = filepath.Join(p.cfg.OutputDir, run.Variant+"_hdr.png")
	staged := filepath.Join(p.cfg.OutputDir, "."+run.Variant+"_hdr.png.partial")
	written = append(written, staged)
	if grid {
		err = p.composer.Compose(ctx, images, p.cfg.GridColumns, staged)
	} else {
		err = p.composer.WriteSingle(ctx, images[0], staged)
	}
	if err != nil {
		metrics.RecordError("plot", "write")
		return err
	}

	if err := p.reporter.Print(run); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if p.cfg.ReportDir != "" {
		path, err := p.reporter.WriteSummary(ctx, run)
		if err != nil {
			metrics.RecordError("report", "write")
			return err
		}
		written = append(written, path)
	}

	if err := os.Rename(staged, run.Image); err != nil {
		metrics.RecordError("plot", "write")
		return fmt.Errorf("%w: %s: %w", plot.ErrWriteImage, run.Image, err)
	}
	written = append(written, run.Image)
	metrics.RecordPlotWritten(run.Variant)

	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			metrics.RecordError("archive", "save")
			return err
		}
	}
	return nil
}

// groupLevels returns the indexed levels of spec from the top down, so
// institution means precede the departments nested in them.
func groupLevels(spec *model.Spec) []model.Level {
	var out []model.Level
	for i := len(spec.Levels) - 1; i >= 0; i-- {
		if spec.Levels[i].Indexed() {
			out = append(out, spec.Levels[i])
		}
	}
	return out
}

// target is one posterior column to summarize and its display label.
type target struct {
	column string
	label  string
}

// summarize estimates the HDR of one column, prints its report line and
// renders its curve.
func (p *Pipeline) summarize(ctx context.Context, variant string, table *posterior.Table, t target) (types.ParameterSummary, image.Image, error) {
	draws, err := table.Column(t.column)
	if err != nil {
		return types.ParameterSummary{}, nil, err
	}
	res, err := hdr.Estimate(draws, p.cfg.HDRMass)
	if err != nil {
		return types.ParameterSummary{}, nil, err
	}
	st, err := table.Describe(t.column)
	if err != nil {
		return types.ParameterSummary{}, nil, err
	}

	s := types.ParameterSummary{
		Parameter: t.column,
		Label:     t.label,
		Mass:      res.Mass,
		Mode:      res.Mode,
		Center:    res.Center(),
		Width:     res.Width(),
		Mean:      st.Mean,
		SD:        st.SD,
	}
	for _, iv := range res.Intervals {
		s.Intervals = append(s.Intervals, types.Interval{Lo: iv.Lo, Hi: iv.Hi})
	}
	if !math.IsNaN(st.RHat) {
		rhat := st.RHat
		s.RHat = &rhat
		metrics.UpdateConvergence(variant, t.column, rhat)
		if rhat > p.cfg.RHatWarn {
			p.logger.Warn(ctx, "chains have not converged",
				logger.String("variant", variant),
				logger.String("parameter", t.column),
				logger.Float64("rhat", rhat),
			)
		}
	}
	metrics.RecordHDR(variant, t.column, s.Width, len(s.Intervals))

	if err := p.reporter.Line(s, res); err != nil {
		return types.ParameterSummary{}, nil, fmt.Errorf("print report line: %w", err)
	}
	title := t.column
	if t.label != "" {
		title += ": " + t.label
	}
	img, err := p.composer.Render(res, title)
	if err != nil {
		return types.ParameterSummary{}, nil, err
	}
	return s, img, nil
}

func (p *Pipeline) institutions() []dataset.Institution {
	out := make([]dataset.Institution, len(p.cfg.Institutions))
	for i, inst := range p.cfg.Institutions {
		out[i] = dataset.Institution{Name: inst.Name, Abbrev: inst.Abbrev}
	}
	return out
}

func hyper(pr config.Prior) model.Hyper {
	return model.Hyper{
		Mean:      model.NormalPrior{Mode: pr.Mode, Precision: pr.Precision},
		Precision: model.GammaPrior{Shape: pr.Shape, Rate: pr.Rate},
	}
}
