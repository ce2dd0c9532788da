package report

import (
	"io"

	"github.com/okian/bayesrate/pkg/logger"
)

// Option applies a configuration option to the Reporter.
type Option func(*Reporter)

// WithOutput sets the console writer.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) {
		if w != nil {
			r.out = w
		}
	}
}

// WithDir sets the summary directory.
func WithDir(dir string) Option {
	return func(r *Reporter) {
		if dir != "" {
			r.dir = dir
		}
	}
}

// WithFormat selects FormatJSON or FormatYAML.
func WithFormat(format string) Option {
	return func(r *Reporter) {
		if format != "" {
			r.format = format
		}
	}
}

// WithRHatWarn sets the R-hat level highlighted in tables.
func WithRHatWarn(level float64) Option {
	return func(r *Reporter) {
		if level > 1 {
			r.rhatWarn = level
		}
	}
}

// WithLogger sets a custom logger for the reporter.
func WithLogger(l logger.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}
