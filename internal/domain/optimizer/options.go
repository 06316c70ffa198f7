package optimizer

import "github.com/okian/cardsections/pkg/logger"

// Default limits.
const (
	DefaultMaxSections        = 5
	DefaultKeywordLimit       = 3
	DefaultSectionsPerKeyword = 2
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithMaxSections caps the number of returned sections.
func WithMaxSections(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxSections = n
		}
	}
}

// WithKeywordLimit sets how many leading keywords feed the augmentation pass.
func WithKeywordLimit(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.keywordLimit = n
		}
	}
}

// WithSectionsPerKeyword sets how many top sections are fetched per keyword.
func WithSectionsPerKeyword(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.sectionsPerKeyword = n
		}
	}
}

// WithLogger sets the logger used for dropped-input diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}
