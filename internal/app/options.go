package app

import (
	"github.com/okian/bayesrate/internal/adapters/plot"
	"github.com/okian/bayesrate/internal/adapters/report"
	"github.com/okian/bayesrate/internal/adapters/repository"
	"github.com/okian/bayesrate/internal/domain/sampling"
	"github.com/okian/bayesrate/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithEngine replaces the sampling engine.
func WithEngine(e sampling.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithComposer replaces the plot composer.
func WithComposer(c *plot.Composer) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.composer = c
		}
	}
}

// WithReporter replaces the console and summary reporter.
func WithReporter(r *report.Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithStore archives every successful run.
func WithStore(s repository.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
