// Package repository persists the selection event log and serves the derived
// aggregates built from it.
//
// The log is the source of truth. Aggregates are a cache over it: every
// backend can rebuild them by replaying the log, and readers always see an
// immutable snapshot published atomically after each write.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/pkg/metrics"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is the analytics store contract shared by all backends.
type Store interface {
	// Load reads the persisted log into memory. A missing log is an empty
	// store. Fails with ErrCorruptData or ErrStorage.
	Load(ctx context.Context) error

	// AppendEvent appends ev and updates aggregates atomically. On failure the
	// in-memory state is unchanged and the error wraps ErrStorage.
	AppendEvent(ctx context.Context, ev model.SelectionEvent) error

	// RebuildAggregates replays the full log into a fresh snapshot.
	RebuildAggregates(ctx context.Context) error

	// Reset sets unreadable history aside and starts an empty log.
	Reset(ctx context.Context) error

	// Snapshot returns the current aggregates. Never nil; must not be modified.
	Snapshot() *model.Aggregates

	// Events returns a copy of the in-memory log.
	Events() []model.SelectionEvent

	Close() error
}

// New opens a store for the given driver. path is ignored by the memory driver.
func New(driver, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFile:
		return NewFileStore(path, opts...), nil
	case DriverSQLite:
		return NewSQLiteStore(path, opts...)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// logState holds the in-memory log and its published aggregates. Callers
// serialize writes with their own mutex; reads are lock-free.
type logState struct {
	events   []model.SelectionEvent
	snapshot atomic.Pointer[model.Aggregates]
}

func newLogState() *logState {
	s := &logState{}
	s.snapshot.Store(model.NewAggregates())
	return s
}

// replace swaps in a new log and publishes a full replay of it.
func (s *logState) replace(events []model.SelectionEvent) {
	s.events = events
	s.publish(model.Replay(events))
}

// appendOne extends the log by ev and applies it incrementally.
func (s *logState) appendOne(ev model.SelectionEvent) {
	s.events = append(cloneEvents(s.events), ev)
	s.publish(s.snapshot.Load().With(ev))
}

func (s *logState) publish(agg *model.Aggregates) {
	s.snapshot.Store(agg)
	metrics.UpdateStoreSize(agg.Events, len(agg.Sections), len(agg.Keywords))
}

func (s *logState) current() *model.Aggregates {
	return s.snapshot.Load()
}

func cloneEvents(events []model.SelectionEvent) []model.SelectionEvent {
	out := make([]model.SelectionEvent, len(events), len(events)+1)
	copy(out, events)
	return out
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func corruptErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptData, op, err)
}

// IsCorrupt reports whether err is a corrupt-data failure.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorruptData) }
