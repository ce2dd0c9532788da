package plot

import (
	"gonum.org/v1/plot/vg"

	"github.com/okian/bayesrate/pkg/logger"
)

// Option applies a configuration option to the Composer.
type Option func(*Composer)

// WithSize sets the size of one rendered curve.
func WithSize(w, h vg.Length) Option {
	return func(c *Composer) {
		if w > 0 && h > 0 {
			c.width, c.height = w, h
		}
	}
}

// WithTempDir sets where scoped render files are created. Empty uses the
// system default.
func WithTempDir(dir string) Option {
	return func(c *Composer) {
		c.tempDir = dir
	}
}

// WithLogger sets a custom logger for the composer.
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}
