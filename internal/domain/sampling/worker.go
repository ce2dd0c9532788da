package sampling

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/bayesrate/internal/domain/posterior"
	"github.com/okian/bayesrate/pkg/logger"
	"github.com/okian/bayesrate/pkg/metrics"
)

// chainWorker runs one chain and stores its draws.
type chainWorker struct {
	index    int
	compiled Compiled
	table    *posterior.Table
	mon      []monitored
	variant  string
	every    int
	logger   logger.Logger
}

func newChainWorker(index int, compiled Compiled, table *posterior.Table, mon []monitored, o *orchestrator) *chainWorker {
	return &chainWorker{
		index:    index,
		compiled: compiled,
		table:    table,
		mon:      mon,
		variant:  o.variant,
		every:    o.checkEvery,
		logger:   o.logger.Named("chain-" + strconv.Itoa(index)),
	}
}

// run initializes the chain, discards adapt iterations and records
// iterations draws. Cancellation is checked every w.every iterations.
func (w *chainWorker) run(ctx context.Context, seed int64, adapt, iterations int) error {
	start := time.Now()
	metrics.IncActiveChains()
	defer metrics.DecActiveChains()

	chain, err := w.compiled.NewChain(seed)
	if err != nil {
		return fmt.Errorf("%w: chain %d init: %w", ErrChain, w.index, err)
	}

	for done := 0; done < adapt; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(w.every, adapt-done)
		if err := chain.Adapt(n); err != nil {
			return fmt.Errorf("%w: chain %d adapt: %w", ErrChain, w.index, err)
		}
		done += n
	}
	metrics.RecordAdaptIterations(w.variant, adapt)

	buf := make(map[string][]float64, len(w.mon))
	for _, m := range w.mon {
		buf[m.param.Name] = make([]float64, m.param.Width)
	}
	for it := range iterations {
		if it%w.every == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := chain.Step(); err != nil {
			return fmt.Errorf("%w: chain %d iteration %d: %w", ErrChain, w.index, it, err)
		}
		chain.Values(buf)
		for _, m := range w.mon {
			for k, v := range buf[m.param.Name] {
				w.table.Store(m.col+k, w.index, it, v)
			}
		}
	}

	elapsed := time.Since(start)
	metrics.RecordDraws(w.variant, iterations)
	metrics.RecordChainCompleted(w.variant, elapsed.Seconds())
	w.logger.Debug(ctx, "chain finished",
		logger.Int64("seed", seed),
		logger.Duration("elapsed", elapsed),
	)
	return nil
}
