package sampling

import "errors"

var (
	// ErrUnknownParameter is returned when a monitored name is not a model parameter.
	ErrUnknownParameter = errors.New("unknown monitored parameter")
	// ErrInvalidConfig is returned for non-positive chain or iteration counts.
	ErrInvalidConfig = errors.New("invalid sampler configuration")
	// ErrChain wraps failures inside a single chain.
	ErrChain = errors.New("chain failed")
)
