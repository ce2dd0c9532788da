package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrMissingFile = errors.New("rating file missing")
	ErrMalformed   = errors.New("rating file malformed")
	ErrRegistry    = errors.New("invalid registry")
	ErrEmpty       = errors.New("dataset is empty")
)
