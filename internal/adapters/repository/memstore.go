package repository

import (
	"context"
	"sync"

	"github.com/okian/cardsections/internal/domain/model"
)

// MemoryStore keeps the log in process memory only. Failures can be injected
// to exercise callers' degraded paths.
type MemoryStore struct {
	mu        sync.Mutex
	state     *logState
	seed      []model.SelectionEvent
	loadErr   error
	appendErr error
}

// NewMemoryStore returns an empty in-memory store. Events passed here are
// what Load and RebuildAggregates read back, as if persisted earlier.
func NewMemoryStore(events ...model.SelectionEvent) *MemoryStore {
	return &MemoryStore{
		state: newLogState(),
		seed:  cloneEvents(events),
	}
}

// SetLoadError makes Load and RebuildAggregates fail with err until cleared.
func (s *MemoryStore) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// FailAppends makes AppendEvent fail with err until cleared with nil.
func (s *MemoryStore) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

func (s *MemoryStore) Load(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.state.replace(cloneEvents(s.seed))
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, ev model.SelectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return storageErr("append", s.appendErr)
	}
	s.seed = append(s.seed, ev)
	s.state.appendOne(ev)
	return nil
}

func (s *MemoryStore) RebuildAggregates(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.state.replace(cloneEvents(s.seed))
	return nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = nil
	s.loadErr = nil
	s.state.replace(nil)
	return nil
}

func (s *MemoryStore) Snapshot() *model.Aggregates { return s.state.current() }

func (s *MemoryStore) Events() []model.SelectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.state.events)
}

func (s *MemoryStore) Close() error { return nil }
