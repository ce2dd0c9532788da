package gibbs

import "errors"

var (
	// ErrData is returned when ratings do not match the model.
	ErrData = errors.New("ratings do not fit model")
	// ErrNumerical is returned when a draw leaves the parameter's support.
	ErrNumerical = errors.New("numerical failure in gibbs sweep")
)
