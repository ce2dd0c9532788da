package sampling

import (
	"github.com/okian/bayesrate/pkg/logger"
)

// Option applies a configuration option to the orchestrator.
type Option func(*orchestrator)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithVariant labels metrics and logs with the model variant name.
func WithVariant(name string) Option {
	return func(o *orchestrator) {
		if name != "" {
			o.variant = name
		}
	}
}

// WithCheckEvery sets how many iterations run between cancellation checks.
func WithCheckEvery(n int) Option {
	return func(o *orchestrator) {
		if n > 0 {
			o.checkEvery = n
		}
	}
}
