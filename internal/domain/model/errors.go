package model

import "errors"

// Sentinel kinds for model specification errors.
var (
	ErrUnknownTopology = errors.New("unknown model topology")
	ErrIndexOutOfRange = errors.New("group index out of range")
	ErrInvalidHyper    = errors.New("invalid hyperparameters")
	ErrNoObservations  = errors.New("model has no observations")
)
