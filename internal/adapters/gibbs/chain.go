package gibbs

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// chain is the mutable state of one Markov chain. means[l] holds level l;
// tau[0] is the rating precision and tau[l+1] the precision of level l
// members around their parents.
type chain struct {
	c     *compiled
	src   rand.Source
	means [][]float64
	sums  [][]float64
	tau   []float64
}

// Adapt runs n sweeps and discards them.
func (ch *chain) Adapt(n int) error {
	for range n {
		if err := ch.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step performs one full sweep: means bottom-up, then precisions.
func (ch *chain) Step() error {
	last := len(ch.c.levels) - 1
	for l := range ch.c.levels {
		ch.childSums(l)
		lv := ch.c.levels[l]
		childTau := ch.tau[l]
		for j := range ch.means[l] {
			priorMean, priorPrec := ch.c.mean.Mode, ch.c.mean.Precision
			if l < last {
				priorMean = ch.means[l+1][lv.parent[j]]
				priorPrec = ch.tau[l+1]
			}
			prec := priorPrec + lv.children[j]*childTau
			mu := (priorPrec*priorMean + childTau*ch.sums[l][j]) / prec
			ch.means[l][j] = distuv.Normal{Mu: mu, Sigma: 1 / math.Sqrt(prec), Src: ch.src}.Rand()
		}
	}

	for k := range ch.tau {
		n, ss := ch.residuals(k)
		prior := ch.c.priors[k]
		ch.tau[k] = distuv.Gamma{Alpha: prior.Shape + n/2, Beta: prior.Rate + ss/2, Src: ch.src}.Rand()
		if !(ch.tau[k] > 0) || math.IsInf(ch.tau[k], 0) {
			return fmt.Errorf("%w: %s drew %g", ErrNumerical, ch.c.precNames[k], ch.tau[k])
		}
	}
	return nil
}

// childSums totals, per member of level l, the values of its children.
func (ch *chain) childSums(l int) {
	sums := ch.sums[l]
	for j := range sums {
		sums[j] = 0
	}
	if l == 0 {
		for i, p := range ch.c.obsParent {
			sums[p] += ch.c.y[i]
		}
		return
	}
	for j, p := range ch.c.levels[l-1].parent {
		sums[p] += ch.means[l-1][j]
	}
}

// residuals returns the count and sum of squared deviations governed by tau[k].
func (ch *chain) residuals(k int) (float64, float64) {
	var ss float64
	if k == 0 {
		for i, p := range ch.c.obsParent {
			d := ch.c.y[i] - ch.means[0][p]
			ss += d * d
		}
		return float64(len(ch.c.y)), ss
	}
	l := k - 1
	for j, p := range ch.c.levels[l].parent {
		d := ch.means[l][j] - ch.means[l+1][p]
		ss += d * d
	}
	return float64(ch.c.levels[l].size), ss
}

// Values copies the current state into every requested slice.
func (ch *chain) Values(dst map[string][]float64) {
	for l, lv := range ch.c.levels {
		if out, ok := dst[lv.name]; ok {
			copy(out, ch.means[l])
		}
	}
	for k, name := range ch.c.precNames {
		if out, ok := dst[name]; ok && len(out) > 0 {
			out[0] = ch.tau[k]
		}
	}
}
