// Package sampling drives MCMC engines through adaptation and production
// across independent chains and merges their draws.
package sampling

import (
	"github.com/okian/bayesrate/internal/domain/model"
)

// Config controls one sampling run.
type Config struct {
	Chains          int
	AdaptIterations int
	Iterations      int
	// Monitor lists the parameters to record. Empty records every parameter.
	Monitor []string
	// Seed of chain k is Seed+k.
	Seed int64
	// Parallelism bounds concurrently running chains; < 1 means one per chain.
	Parallelism int
}

// Engine translates a model description into an executable sampler.
type Engine interface {
	Compile(spec *model.Spec, ratings []float64) (Compiled, error)
}

// Compiled is a model bound to data, ready to spawn chains.
type Compiled interface {
	NewChain(seed int64) (Chain, error)
}

// Chain is one independent Markov chain. A chain is used by one goroutine.
type Chain interface {
	// Adapt runs n tuning iterations whose draws are discarded.
	Adapt(n int) error
	// Step advances the chain by one production iteration.
	Step() error
	// Values copies the current state of every parameter named in dst into
	// its slice.
	Values(dst map[string][]float64)
}
