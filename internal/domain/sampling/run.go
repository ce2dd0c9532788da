package sampling

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/bayesrate/internal/domain/model"
	"github.com/okian/bayesrate/internal/domain/posterior"
	"github.com/okian/bayesrate/pkg/logger"
	"github.com/okian/bayesrate/pkg/metrics"
)

const defaultCheckEvery = 250

type orchestrator struct {
	variant    string
	checkEvery int
	logger     logger.Logger
}

// monitored is one recorded parameter and the first table column it owns.
type monitored struct {
	param model.Parameter
	col   int
}

// Run samples spec against ratings. Every chain adapts, then records
// cfg.Iterations draws into its own row range of a preallocated table, so
// the result depends only on the seeds and not on scheduling.
func Run(ctx context.Context, engine Engine, spec *model.Spec, ratings []float64, cfg Config, opts ...Option) (*posterior.Table, error) {
	o := &orchestrator{
		variant:    spec.Topology.String(),
		checkEvery: defaultCheckEvery,
		logger:     logger.Get().Named("sampler"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Chains < 1 || cfg.Iterations < 1 || cfg.AdaptIterations < 0 {
		return nil, fmt.Errorf("%w: chains=%d adapt=%d iterations=%d", ErrInvalidConfig, cfg.Chains, cfg.AdaptIterations, cfg.Iterations)
	}

	params, err := resolveMonitor(spec, cfg.Monitor)
	if err != nil {
		return nil, err
	}
	var columns []string
	mon := make([]monitored, len(params))
	for i, p := range params {
		mon[i] = monitored{param: p, col: len(columns)}
		columns = append(columns, p.Columns()...)
	}
	table, err := posterior.NewTable(columns, cfg.Chains, cfg.Iterations)
	if err != nil {
		return nil, err
	}

	compiled, err := engine.Compile(spec, ratings)
	if err != nil {
		return nil, fmt.Errorf("compile %s model: %w", spec.Topology, err)
	}

	limit := cfg.Parallelism
	if limit < 1 {
		limit = cfg.Chains
	}
	o.logger.Info(ctx, "sampling started",
		logger.String("variant", o.variant),
		logger.Int("chains", cfg.Chains),
		logger.Int("adapt", cfg.AdaptIterations),
		logger.Int("iterations", cfg.Iterations),
		logger.Int("parallelism", limit),
		logger.Int("columns", len(columns)),
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for c := range cfg.Chains {
		w := newChainWorker(c, compiled, table, mon, o)
		g.Go(func() error {
			return w.run(gctx, cfg.Seed+int64(c), cfg.AdaptIterations, cfg.Iterations)
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordError("sampling", "chain")
		return nil, err
	}

	o.logger.Info(ctx, "sampling finished",
		logger.String("variant", o.variant),
		logger.Int("rows", table.Rows()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

// resolveMonitor maps monitored names to model parameters. An empty list
// selects every parameter.
func resolveMonitor(spec *model.Spec, names []string) ([]model.Parameter, error) {
	if len(names) == 0 {
		return spec.Parameters(), nil
	}
	out := make([]model.Parameter, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		p, ok := spec.Parameter(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, p)
	}
	return out, nil
}
