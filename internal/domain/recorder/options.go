package recorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/cardsections/internal/domain/dedupe"
	"github.com/okian/cardsections/pkg/logger"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithDeduper enables at-most-once recording per article id.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Recorder) {
		r.dedupe = d
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides how missing article ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithLogger sets the recorder logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

func defaultID() string { return uuid.NewString() }
