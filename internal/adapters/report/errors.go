package report

import "errors"

var (
	// ErrFormat is returned for an unsupported summary format.
	ErrFormat = errors.New("unsupported summary format")
	// ErrWriteSummary is returned when a summary file cannot be written.
	ErrWriteSummary = errors.New("cannot write summary")
)
