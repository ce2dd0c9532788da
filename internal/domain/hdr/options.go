package hdr

type options struct {
	gridSize  int
	extend    float64
	bandwidth float64
}

// Option configures an Estimate call.
type Option func(*options)

// WithGridSize sets the number of density evaluation points.
func WithGridSize(n int) Option {
	return func(o *options) {
		if n >= 16 {
			o.gridSize = n
		}
	}
}

// WithExtend sets how many bandwidths the grid reaches past the sample range.
func WithExtend(k float64) Option {
	return func(o *options) {
		if k >= 0 {
			o.extend = k
		}
	}
}

// WithBandwidth fixes the kernel bandwidth instead of using Silverman's rule.
func WithBandwidth(h float64) Option {
	return func(o *options) {
		if h > 0 {
			o.bandwidth = h
		}
	}
}
