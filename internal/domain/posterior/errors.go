package posterior

import "errors"

var (
	// ErrUnknownColumn is returned when a column name is not in the table.
	ErrUnknownColumn = errors.New("unknown posterior column")
	// ErrShape is returned for impossible table layouts.
	ErrShape = errors.New("invalid posterior table shape")
	// ErrDiagnostic is returned when a convergence diagnostic cannot be computed.
	ErrDiagnostic = errors.New("diagnostic unavailable")
)
