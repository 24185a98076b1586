package leaks

import (
	"github.com/okian/leakscan/internal/domain/moves"
	"github.com/okian/leakscan/pkg/logger"
)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithMinRepeat sets how often a position must be reached to be assessed.
func WithMinRepeat(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.minRepeat = n
		}
	}
}

// WithApplier replaces the move applier.
func WithApplier(a moves.Applier) Option {
	return func(c *Classifier) {
		if a != nil {
			c.applier = a
		}
	}
}

// WithRunner runs assessments through r, typically a worker pool.
func WithRunner(r Runner) Option {
	return func(c *Classifier) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger sets a custom logger for the classifier.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}
