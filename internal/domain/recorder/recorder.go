// Package recorder closes the feedback loop: it turns an observed generation
// outcome into a selection event and appends it to the analytics store.
//
// Recording never fails the caller's primary flow. Every failure comes back
// as a *Warning the caller may log and ignore.
package recorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/cardsections/internal/domain/dedupe"
	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/pkg/logger"
	"github.com/okian/cardsections/pkg/metrics"
)

// Appender is the write side of the analytics store.
type Appender interface {
	AppendEvent(ctx context.Context, ev model.SelectionEvent) error
}

// Input is one generation outcome as reported by the caller. Sections should
// be the optimizer's output, already canonical.
type Input struct {
	ArticleID string
	Keywords  []string
	Sections  []model.SectionRef
	Scores    map[model.SectionRef]float64
}

// Recorder appends selection events to a store.
type Recorder struct {
	store  Appender
	dedupe dedupe.Deduper
	now    func() time.Time
	newID  func() string
	log    logger.Logger
}

// New creates a Recorder writing to store.
func New(store Appender, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
		newID: defaultID,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record builds an event from in and appends it. It returns the article id
// the event was stored under, generated when in.ArticleID is blank.
//
// A non-nil error is always a *Warning. It wraps ErrDuplicate when the id was
// already recorded, or the store's error when the append failed.
func (r *Recorder) Record(ctx context.Context, in Input) (string, error) {
	id := strings.TrimSpace(in.ArticleID)
	if id == "" {
		id = r.newID()
	}

	if r.dedupe != nil && r.dedupe.SeenAndRecord(ctx, id) {
		metrics.RecordSelection(metrics.RecordDuplicate)
		r.log.Debug(ctx, "duplicate selection skipped", logger.String("article_id", id))
		return id, &Warning{ArticleID: id, Err: ErrDuplicate}
	}

	ev := model.NewSelectionEvent(id, r.now(), in.Keywords, in.Sections, in.Scores)
	if err := r.store.AppendEvent(ctx, ev); err != nil {
		if r.dedupe != nil {
			r.dedupe.Unrecord(ctx, id)
		}
		metrics.RecordSelection(metrics.RecordFailed)
		r.log.Warn(ctx, "selection not recorded; continuing without analytics",
			logger.String("article_id", id),
			logger.Error(err),
		)
		return id, &Warning{ArticleID: id, Err: err}
	}

	metrics.RecordSelection(metrics.RecordOK)
	r.log.Debug(ctx, "selection recorded",
		logger.String("article_id", id),
		logger.Int("sections", len(ev.Sections)),
	)
	return id, nil
}

// IsDuplicate reports whether err is a duplicate-recording warning.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
