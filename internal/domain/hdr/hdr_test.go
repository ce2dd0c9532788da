package hdr_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/okian/bayesrate/internal/domain/hdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func normalSamples(n int, mu, sigma float64, seed uint64) []float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: rand.NewPCG(seed, seed+1)}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func TestEstimateNormal(t *testing.T) {
	samples := normalSamples(20000, 3.5, 0.4, 7)
	r, err := hdr.Estimate(samples, 0.95)
	require.NoError(t, err)

	require.Len(t, r.Intervals, 1)
	assert.True(t, r.Contains(stat.Mean(samples, nil)))
	assert.InDelta(t, 0.95, r.Coverage(samples), 0.02)
	assert.InDelta(t, 3.5, r.Center(), 0.05)
	assert.InDelta(t, 3.5, r.Mode, 0.1)
	assert.Len(t, r.Grid, 512)
	assert.Len(t, r.Density, 512)
	assert.Contains(t, r.String(), "95% HDR [")
}

func TestEstimateShrinksWithMass(t *testing.T) {
	samples := normalSamples(5000, 0, 1, 11)
	prev := -1.0
	for _, mass := range []float64{0.5, 0.8, 0.95, 0.99} {
		r, err := hdr.Estimate(samples, mass)
		require.NoError(t, err)
		assert.Greater(t, r.Width(), prev, "mass %g", mass)
		prev = r.Width()
	}
}

func TestEstimateBimodal(t *testing.T) {
	samples := append(normalSamples(5000, -3, 0.5, 3), normalSamples(5000, 3, 0.5, 5)...)
	r, err := hdr.Estimate(samples, 0.95)
	require.NoError(t, err)

	require.Len(t, r.Intervals, 2)
	assert.Less(t, r.Intervals[0].Hi, r.Intervals[1].Lo)
	assert.False(t, r.Contains(0))
	assert.True(t, r.Contains(-3))
	assert.True(t, r.Contains(3))
	assert.Contains(t, r.String(), " U ")
}

func TestEstimateOptions(t *testing.T) {
	samples := normalSamples(1000, 0, 1, 13)
	r, err := hdr.Estimate(samples, 0.9, hdr.WithGridSize(128), hdr.WithBandwidth(0.3), hdr.WithExtend(1))
	require.NoError(t, err)
	assert.Len(t, r.Grid, 128)
	assert.Equal(t, 0.3, r.Bandwidth)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	_, err := hdr.Estimate([]float64{3, 3, 3, 3}, 0.95)
	assert.ErrorIs(t, err, hdr.ErrDegenerate)

	_, err = hdr.Estimate([]float64{1}, 0.95)
	assert.ErrorIs(t, err, hdr.ErrDegenerate)

	_, err = hdr.Estimate([]float64{1, 2, 3, 0, 0}, 0.95)
	assert.NoError(t, err)

	nan := normalSamples(10, 0, 1, 1)
	nan[4] = math.NaN()
	_, err = hdr.Estimate(nan, 0.95)
	assert.ErrorIs(t, err, hdr.ErrDegenerate)

	for _, mass := range []float64{0, 1, -0.5, 1.5} {
		_, err = hdr.Estimate(normalSamples(10, 0, 1, 1), mass)
		assert.ErrorIs(t, err, hdr.ErrInvalidMass)
	}
}
