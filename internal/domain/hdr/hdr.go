// Package hdr estimates highest-density regions of posterior samples by
// thresholding a kernel density estimate.
package hdr

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Interval is a closed range [Lo, Hi] on the parameter's support.
type Interval struct {
	Lo float64
	Hi float64
}

// Width returns Hi - Lo.
func (iv Interval) Width() float64 { return iv.Hi - iv.Lo }

// Result is the HDR of one sample vector.
type Result struct {
	// Mass is the requested probability mass.
	Mass float64
	// Intervals are disjoint and sorted ascending.
	Intervals []Interval
	// Threshold is the density height bounding the region.
	Threshold float64
	// Mode is the grid point of maximum density.
	Mode      float64
	Bandwidth float64
	// Grid and Density sample the estimated curve for rendering.
	Grid    []float64
	Density []float64
}

// Estimate computes the HDR of samples at the given mass.
func Estimate(samples []float64, mass float64, opts ...Option) (*Result, error) {
	o := options{gridSize: 512, extend: 3}
	for _, opt := range opts {
		opt(&o)
	}
	if !(mass > 0 && mass < 1) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidMass, mass)
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrDegenerate, len(samples))
	}
	for i, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: sample %d is %g", ErrDegenerate, i, x)
		}
	}

	sorted := sortedCopy(samples)
	sd := stat.StdDev(sorted, nil)
	if !(sd > 0) {
		return nil, fmt.Errorf("%w: zero variance at %g", ErrDegenerate, sorted[0])
	}
	h := o.bandwidth
	if h <= 0 {
		h = silverman(sorted, sd)
	}

	lo := sorted[0] - o.extend*h
	hi := sorted[len(sorted)-1] + o.extend*h
	grid := floats.Span(make([]float64, o.gridSize), lo, hi)
	dens := density(sorted, h, grid)

	r := &Result{
		Mass:      mass,
		Mode:      grid[floats.MaxIdx(dens)],
		Bandwidth: h,
		Grid:      grid,
		Density:   dens,
	}
	r.Threshold = threshold(dens, grid[1]-grid[0], mass)
	r.Intervals = region(grid, dens, r.Threshold)
	return r, nil
}

// threshold lowers the density height, highest grid points first, until the
// points above it carry the requested share of the total mass.
func threshold(dens []float64, dx, mass float64) float64 {
	total := trapezoid(dens, dx)
	order := make([]int, len(dens))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		switch {
		case dens[a] > dens[b]:
			return -1
		case dens[a] < dens[b]:
			return 1
		}
		return a - b
	})

	last := len(dens) - 1
	var acc float64
	for _, i := range order {
		w := dx
		if i == 0 || i == last {
			w = dx / 2
		}
		acc += dens[i] * w / total
		if acc >= mass {
			return dens[i]
		}
	}
	return dens[order[len(order)-1]]
}

// region merges grid points with density >= t into intervals whose
// boundaries are interpolated at the threshold crossing.
func region(grid, dens []float64, t float64) []Interval {
	var out []Interval
	cross := func(a, b int) float64 {
		if dens[b] == dens[a] {
			return grid[a]
		}
		return grid[a] + (t-dens[a])/(dens[b]-dens[a])*(grid[b]-grid[a])
	}
	for i := 0; i < len(grid); {
		if dens[i] < t {
			i++
			continue
		}
		start := i
		for i < len(grid) && dens[i] >= t {
			i++
		}
		end := i - 1
		iv := Interval{Lo: grid[start], Hi: grid[end]}
		if start > 0 {
			iv.Lo = cross(start-1, start)
		}
		if end < len(grid)-1 {
			iv.Hi = cross(end, end+1)
		}
		out = append(out, iv)
	}
	return out
}

// Contains reports whether x lies in any interval.
func (r *Result) Contains(x float64) bool {
	for _, iv := range r.Intervals {
		if x >= iv.Lo && x <= iv.Hi {
			return true
		}
	}
	return false
}

// Width returns the total length of the region.
func (r *Result) Width() float64 {
	var w float64
	for _, iv := range r.Intervals {
		w += iv.Width()
	}
	return w
}

// Center returns the midpoint of the interval holding the mode.
func (r *Result) Center() float64 {
	for _, iv := range r.Intervals {
		if r.Mode >= iv.Lo && r.Mode <= iv.Hi {
			return (iv.Lo + iv.Hi) / 2
		}
	}
	return r.Mode
}

// Coverage returns the share of samples inside the region.
func (r *Result) Coverage(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var in int
	for _, x := range samples {
		if r.Contains(x) {
			in++
		}
	}
	return float64(in) / float64(len(samples))
}

// String renders the region as a report line.
func (r *Result) String() string {
	parts := make([]string, len(r.Intervals))
	for i, iv := range r.Intervals {
		parts[i] = fmt.Sprintf("[%.4f, %.4f]", iv.Lo, iv.Hi)
	}
	return fmt.Sprintf("%g%% HDR %s (mode %.4f, height %.4g)",
		math.Round(r.Mass*1000)/10, strings.Join(parts, " U "), r.Mode, r.Threshold)
}
