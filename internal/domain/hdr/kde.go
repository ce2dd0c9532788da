package hdr

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// silverman returns the rule-of-thumb Gaussian kernel bandwidth for sorted
// samples. IQR is ignored when it collapses to zero.
func silverman(sorted []float64, sd float64) float64 {
	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	spread := sd
	if iqr > 0 {
		spread = math.Min(sd, iqr/1.34)
	}
	return 0.9 * spread * math.Pow(float64(len(sorted)), -0.2)
}

// density evaluates a Gaussian KDE on an evenly spaced grid. Samples are
// linearly binned onto the grid first, so cost is independent of the
// sample count beyond the binning pass.
func density(sorted []float64, h float64, grid []float64) []float64 {
	n := len(grid)
	lo := grid[0]
	dx := grid[1] - grid[0]

	weights := make([]float64, n)
	for _, x := range sorted {
		pos := (x - lo) / dx
		i := int(math.Floor(pos))
		frac := pos - float64(i)
		switch {
		case i < 0:
			weights[0]++
		case i >= n-1:
			weights[n-1]++
		default:
			weights[i] += 1 - frac
			weights[i+1] += frac
		}
	}

	// kernel[k] = phi(k*dx/h), truncated where it underflows relative to the peak.
	reach := min(n-1, int(math.Ceil(8*h/dx)))
	kernel := make([]float64, reach+1)
	for k := range kernel {
		u := float64(k) * dx / h
		kernel[k] = math.Exp(-0.5*u*u) / math.Sqrt(2*math.Pi)
	}

	out := make([]float64, n)
	norm := 1 / (float64(len(sorted)) * h)
	for g := range out {
		var sum float64
		for j := max(0, g-reach); j <= min(n-1, g+reach); j++ {
			if weights[j] == 0 {
				continue
			}
			k := g - j
			if k < 0 {
				k = -k
			}
			sum += weights[j] * kernel[k]
		}
		out[g] = sum * norm
	}
	return out
}

// trapezoid integrates y over an even grid with spacing dx.
func trapezoid(y []float64, dx float64) float64 {
	if len(y) < 2 {
		return 0
	}
	return dx * (floats.Sum(y) - (y[0]+y[len(y)-1])/2)
}

func sortedCopy(samples []float64) []float64 {
	s := slices.Clone(samples)
	slices.Sort(s)
	return s
}
