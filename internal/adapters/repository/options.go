package repository

import (
	"time"

	"github.com/okian/cardsections/pkg/logger"
)

// Default store settings.
const (
	defaultLockTimeout = 2 * time.Second
	lockRetryDelay     = 10 * time.Millisecond
)

type settings struct {
	lockTimeout time.Duration
	logger      logger.Logger
	now         func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		lockTimeout: defaultLockTimeout,
		logger:      logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a persistent store.
type Option func(*settings)

// WithLockTimeout bounds how long a writer waits for the store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for quarantine file names.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
