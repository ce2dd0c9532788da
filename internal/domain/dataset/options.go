package dataset

import (
	"github.com/okian/bayesrate/pkg/logger"
)

// Option applies a configuration option to the combiner.
type Option func(*combiner)

// WithDir sets the directory holding the rating files.
func WithDir(dir string) Option {
	return func(c *combiner) {
		if dir != "" {
			c.dir = dir
		}
	}
}

// WithFilePattern sets the file name pattern; %s is replaced by the
// institution abbreviation.
func WithFilePattern(pattern string) Option {
	return func(c *combiner) {
		if pattern != "" {
			c.pattern = pattern
		}
	}
}

// WithColumns sets the required department and rating header names.
func WithColumns(department, rating string) Option {
	return func(c *combiner) {
		if department != "" {
			c.deptColumn = department
		}
		if rating != "" {
			c.ratingColumn = rating
		}
	}
}

// WithExcludeUnrated drops rows whose rating is exactly zero, the placeholder
// the rating site shows for professors nobody has rated yet.
func WithExcludeUnrated(exclude bool) Option {
	return func(c *combiner) {
		c.excludeUnrated = exclude
	}
}

// WithLogger sets a custom logger for the combiner.
func WithLogger(l logger.Logger) Option {
	return func(c *combiner) {
		if l != nil {
			c.logger = l
		}
	}
}
