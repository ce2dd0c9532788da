package hdr

import "errors"

var (
	// ErrDegenerate is returned when no density can be estimated: too few
	// samples, non-finite values or zero variance.
	ErrDegenerate = errors.New("degenerate sample")
	// ErrInvalidMass is returned when the mass is outside (0, 1).
	ErrInvalidMass = errors.New("probability mass must be in (0, 1)")
)
