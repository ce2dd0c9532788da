package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one column across all chains.
type Stats struct {
	Mean float64
	SD   float64
	RHat float64
}

// GelmanRubin returns the potential scale reduction factor of a column.
// Values near 1 indicate the chains agree.
func (t *Table) GelmanRubin(name string) (float64, error) {
	if t.chains < 2 || t.iterations < 2 {
		return 0, fmt.Errorf("%w: need at least 2 chains of 2 draws", ErrDiagnostic)
	}
	n := float64(t.iterations)
	means := make([]float64, t.chains)
	vars := make([]float64, t.chains)
	for c := range t.chains {
		draws, err := t.ChainColumn(name, c)
		if err != nil {
			return 0, err
		}
		means[c], vars[c] = stat.MeanVariance(draws, nil)
	}
	w := stat.Mean(vars, nil)
	b := n * stat.Variance(means, nil)
	if w == 0 {
		if b == 0 {
			return 1, nil
		}
		return math.Inf(1), nil
	}
	pooled := (n-1)/n*w + b/n
	return math.Sqrt(pooled / w), nil
}

// Describe returns mean, standard deviation and R-hat of a column. R-hat is
// NaN for single-chain tables.
func (t *Table) Describe(name string) (Stats, error) {
	draws, err := t.Column(name)
	if err != nil {
		return Stats{}, err
	}
	mean, sd := stat.MeanStdDev(draws, nil)
	rhat, err := t.GelmanRubin(name)
	if err != nil {
		rhat = math.NaN()
	}
	return Stats{Mean: mean, SD: sd, RHat: rhat}, nil
}
