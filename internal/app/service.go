// Package service wires the analytics store, reliability and correlation
// views, optimizer and recorder into the dependencies the HTTP API and the
// CLI need.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/cardsections/internal/adapters/repository"
	"github.com/okian/cardsections/internal/domain/correlation"
	"github.com/okian/cardsections/internal/domain/dedupe"
	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/optimizer"
	"github.com/okian/cardsections/internal/domain/recorder"
	"github.com/okian/cardsections/internal/domain/reliability"
	"github.com/okian/cardsections/pkg/logger"
	"github.com/okian/cardsections/pkg/metrics"
)

// Default service limits.
const (
	DefaultDedupeSize = 50_000
	DefaultMaxTopN    = 50
)

// Service implements the API dependencies for the section engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	reliability  *reliability.Calculator
	correlations *correlation.Index
	optimizer    *optimizer.Optimizer
	recorder     *recorder.Recorder
	deduper      dedupe.Deduper

	// Configuration
	trustThreshold     float64
	maxSections        int
	keywordLimit       int
	sectionsPerKeyword int
	dedupeSize         int
	maxTopN            int

	// State
	started  bool
	degraded string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the analytics store. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTrustThreshold sets the reliability at which a section is kept as is.
func WithTrustThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 1 {
			s.trustThreshold = threshold
		}
	}
}

// WithMaxSections caps the optimized list length.
func WithMaxSections(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSections = n
		}
	}
}

// WithKeywordLimit sets how many leading keywords drive augmentation.
func WithKeywordLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.keywordLimit = n
		}
	}
}

// WithSectionsPerKeyword sets how many correlated sections each keyword offers.
func WithSectionsPerKeyword(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sectionsPerKeyword = n
		}
	}
}

// WithDedupeSize sets the size of the article id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxTopN bounds top_n on keyword queries.
func WithMaxTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithStore it runs on an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		trustThreshold:     reliability.DefaultTrustThreshold,
		maxSections:        optimizer.DefaultMaxSections,
		keywordLimit:       optimizer.DefaultKeywordLimit,
		sectionsPerKeyword: optimizer.DefaultSectionsPerKeyword,
		dedupeSize:         DefaultDedupeSize,
		maxTopN:            DefaultMaxTopN,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.reliability = reliability.New(s.store, reliability.WithTrustThreshold(s.trustThreshold))
	s.correlations = correlation.New(s.store)
	s.optimizer = optimizer.New(s.reliability, s.correlations,
		optimizer.WithMaxSections(s.maxSections),
		optimizer.WithKeywordLimit(s.keywordLimit),
		optimizer.WithSectionsPerKeyword(s.sectionsPerKeyword),
		optimizer.WithLogger(s.logger.Named("optimizer")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.recorder = recorder.New(s.store,
		recorder.WithDeduper(s.deduper),
		recorder.WithLogger(s.logger.Named("recorder")),
	)
	return s
}

// Start loads the analytics history. Unreadable or corrupt history never
// fails startup: the service logs a warning and runs on an empty log.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting section engine...")

	s.degraded = ""
	if err := s.store.Load(ctx); err != nil {
		s.recoverLoad(ctx, err)
	}

	snap := s.store.Snapshot()
	s.started = true
	s.logger.Info(ctx, "section engine started",
		logger.Int("events", snap.Events),
		logger.Int("sections", len(snap.Sections)),
		logger.Int("keywords", len(snap.Keywords)),
		logger.Float64("trustThreshold", s.trustThreshold),
		logger.Int("maxSections", s.maxSections),
		logger.Bool("degraded", s.degraded != ""),
	)
	return nil
}

func (s *Service) recoverLoad(ctx context.Context, err error) {
	if errors.Is(err, repository.ErrCorruptData) {
		metrics.RecordStoreLoadFailure("corrupt")
		s.logger.Warn(ctx, "analytics history is corrupt; starting with empty history", logger.Error(err))
		if rerr := s.store.Reset(ctx); rerr != nil {
			s.logger.Warn(ctx, "failed to set corrupt history aside", logger.Error(rerr))
		}
		s.degraded = "corrupt history reset"
		return
	}
	metrics.RecordStoreLoadFailure("storage")
	s.logger.Warn(ctx, "analytics history unavailable; continuing without it", logger.Error(err))
	s.degraded = "history unavailable"
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping section engine...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close analytics store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "section engine stopped")
}

// Optimize returns the sections to render for an article.
func (s *Service) Optimize(ctx context.Context, keywords []string, baseline []any) optimizer.Result {
	start := time.Now()
	res := s.optimizer.Optimize(ctx, keywords, baseline)

	metrics.RecordOptimize(float64(time.Since(start).Microseconds())/1000, len(res.Sections))
	metrics.RecordSectionDecisions(metrics.OutcomeKept, res.Stats.Kept)
	metrics.RecordSectionDecisions(metrics.OutcomeReplaced, res.Stats.Replaced)
	metrics.RecordSectionDecisions(metrics.OutcomeDropped, res.Stats.Dropped)
	metrics.RecordSectionDecisions(metrics.OutcomeAugmented, res.Stats.Augmented)
	metrics.RecordSectionDecisions(metrics.OutcomeRejected, res.Stats.Rejected)
	return res
}

// Record appends a generation outcome. A non-nil error is a *recorder.Warning;
// the caller's result stands either way.
func (s *Service) Record(ctx context.Context, in recorder.Input) (string, error) {
	return s.recorder.Record(ctx, in)
}

// Reliability returns the reliability view of one section.
func (s *Service) Reliability(id model.SectionRef) reliability.Entry {
	return s.reliability.Lookup(id)
}

// ReliabilityReport returns every known section ordered by reliability.
func (s *Service) ReliabilityReport() []reliability.Entry {
	return s.reliability.Report()
}

// BestSections returns the top correlated sections for keyword. topN is
// clamped to the configured maximum; non-positive means the maximum.
func (s *Service) BestSections(keyword string, topN int) []model.ScoredSection {
	if topN <= 0 || topN > s.maxTopN {
		topN = s.maxTopN
	}
	return s.correlations.BestSectionsForKeyword(keyword, topN)
}

// Rebuild replays the persisted log into fresh aggregates and returns the
// number of events replayed.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	start := time.Now()
	if err := s.store.RebuildAggregates(ctx); err != nil {
		s.logger.Warn(ctx, "rebuild failed", logger.Error(err))
		return 0, err
	}
	snap := s.store.Snapshot()
	s.logger.Info(ctx, "aggregates rebuilt",
		logger.Int("events", snap.Events),
		logger.Duration("took", time.Since(start)),
	)
	return snap.Events, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.store.Snapshot()
	stats := map[string]any{
		"started":        s.started,
		"events":         snap.Events,
		"sections":       len(snap.Sections),
		"keywords":       len(snap.Keywords),
		"trustThreshold": s.trustThreshold,
		"maxSections":    s.maxSections,
		"dedupeSize":     s.deduper.Size(),
	}
	if s.degraded != "" {
		stats["degraded"] = s.degraded
	}
	metrics.UpdateStoreSize(snap.Events, len(snap.Sections), len(snap.Keywords))
	return stats
}
