// Package gibbs is a conjugate Gibbs sampler for normal hierarchies with
// normal and gamma priors. Every full conditional is sampled exactly, so
// adaptation only moves the chain away from its starting point.
package gibbs

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/bayesrate/internal/domain/model"
	"github.com/okian/bayesrate/internal/domain/sampling"
	"github.com/okian/bayesrate/pkg/logger"
)

// seedMix decorrelates the second PCG word from the chain seed.
const seedMix = 0x9e3779b97f4a7c15

// Engine compiles model descriptions into Gibbs samplers.
type Engine struct {
	logger logger.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logger.Get().Named("gibbs")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// level is the engine form of model.Level with 0-based parents.
type level struct {
	name      string
	size      int
	parent    []int
	precision string
	// children counts members of the level below (or ratings) per member.
	children []float64
}

// compiled holds the data and structure shared read-only by every chain.
type compiled struct {
	y         []float64
	obsParent []int
	levels    []level
	// precNames[k] names tau[k]: observation precision first, then the
	// precision of each non-population level.
	precNames []string
	priors    []model.GammaPrior
	mean      model.NormalPrior
	initMean  float64
	initVar   float64
}

var _ sampling.Engine = (*Engine)(nil)

// Compile binds spec to ratings.
func (e *Engine) Compile(spec *model.Spec, ratings []float64) (sampling.Compiled, error) {
	if len(ratings) != spec.Observations {
		return nil, fmt.Errorf("%w: %d ratings for %d observations", ErrData, len(ratings), spec.Observations)
	}
	for i, y := range ratings {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("%w: rating %d is %g", ErrData, i+1, y)
		}
	}

	c := &compiled{
		y:         ratings,
		obsParent: zeroBased(spec.ObservationParent),
		mean:      spec.Hyper.Mean,
		precNames: []string{model.ObservationPrecision},
	}
	for i, l := range spec.Levels {
		lv := level{
			name:      l.Mean,
			size:      l.Size(),
			parent:    zeroBased(l.Parent),
			precision: l.Precision,
			children:  make([]float64, l.Size()),
		}
		if i == 0 {
			for _, p := range c.obsParent {
				lv.children[p]++
			}
		} else {
			for _, p := range c.levels[i-1].parent {
				lv.children[p]++
			}
		}
		c.levels = append(c.levels, lv)
		if l.Precision != "" {
			c.precNames = append(c.precNames, l.Precision)
		}
	}
	for _, name := range c.precNames {
		c.priors = append(c.priors, spec.Hyper.GammaFor(name))
	}
	c.initMean, c.initVar = stat.MeanVariance(ratings, nil)
	if !(c.initVar > 0) {
		c.initVar = 1
	}

	e.logger.Debug(context.Background(), "model compiled",
		logger.String("topology", spec.Topology.String()),
		logger.Int("observations", len(ratings)),
		logger.Int("levels", len(c.levels)),
		logger.Strings("precisions", c.precNames),
	)
	return c, nil
}

func zeroBased(idx []int) []int {
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = v - 1
	}
	return out
}

// NewChain starts a chain with dispersed means around the rating average.
func (c *compiled) NewChain(seed int64) (sampling.Chain, error) {
	src := rand.NewPCG(uint64(seed), uint64(seed)^seedMix)
	ch := &chain{
		c:     c,
		src:   src,
		means: make([][]float64, len(c.levels)),
		sums:  make([][]float64, len(c.levels)),
		tau:   make([]float64, len(c.precNames)),
	}
	start := distuv.Normal{Mu: c.initMean, Sigma: math.Sqrt(c.initVar), Src: src}
	for i, l := range c.levels {
		ch.means[i] = make([]float64, l.size)
		ch.sums[i] = make([]float64, l.size)
		for j := range ch.means[i] {
			ch.means[i][j] = start.Rand()
		}
	}
	for k := range ch.tau {
		ch.tau[k] = 1 / c.initVar
	}
	return ch, nil
}
