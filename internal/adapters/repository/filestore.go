package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/pkg/logger"
	"github.com/okian/cardsections/pkg/metrics"
)

const (
	storeDirPerm = 0o755
)

// FileStore keeps the log as a single JSON document. Writers in this process
// are serialized by a mutex; writers in other processes by an advisory lock
// on "<path>.lock". Every write re-reads the document under the lock, writes
// a temp file next to it and renames it into place.
type FileStore struct {
	path     string
	lock     *flock.Flock
	settings settings

	mu    sync.Mutex
	state *logState
}

// NewFileStore creates a store backed by the JSON document at path.
// Nothing is read until Load.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{
		path:     path,
		lock:     flock.New(path + ".lock"),
		settings: newSettings(opts),
		state:    newLogState(),
	}
}

func (s *FileStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.read()
	if err != nil {
		return err
	}
	s.state.replace(events)
	s.settings.logger.Debug(ctx, "analytics store loaded",
		logger.String("path", s.path),
		logger.Int("events", len(events)),
	)
	return nil
}

func (s *FileStore) AppendEvent(ctx context.Context, ev model.SelectionEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	base, err := s.read()
	switch {
	case IsCorrupt(err):
		// Unreadable history is set aside; the in-memory log carries on.
		s.settings.logger.Warn(ctx, "analytics store corrupt on append; starting a fresh log",
			logger.String("path", s.path),
			logger.Error(err),
		)
		if err := s.quarantine(ctx); err != nil {
			return err
		}
		base = s.state.events
	case err != nil:
		return err
	}

	next := append(cloneEvents(base), ev)
	if err := s.write(next); err != nil {
		return err
	}

	// next is exactly what is on disk; other processes may have appended or
	// reset since our last read.
	s.state.replace(next)
	return nil
}

func (s *FileStore) RebuildAggregates(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	events, err := s.read()
	if err != nil {
		return err
	}
	s.state.replace(events)
	metrics.RecordStoreRebuildDuration(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.quarantine(ctx); err != nil {
		return err
	}
	s.state.replace(nil)
	return nil
}

func (s *FileStore) Snapshot() *model.Aggregates { return s.state.current() }

func (s *FileStore) Events() []model.SelectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.state.events)
}

func (s *FileStore) Close() error {
	if err := s.lock.Close(); err != nil {
		return storageErr("close lock", err)
	}
	return nil
}

// acquire takes the cross-process lock, waiting at most lockTimeout.
func (s *FileStore) acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), storeDirPerm); err != nil {
		return nil, storageErr("create store directory", err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.settings.lockTimeout)
	defer cancel()

	ok, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, storageErr("acquire store lock", err)
	}
	if !ok {
		return nil, storageErr("acquire store lock", errors.New("lock held by another writer"))
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.settings.logger.Warn(context.Background(), "failed to release store lock",
				logger.String("path", s.path),
				logger.Error(err),
			)
		}
	}, nil
}

func (s *FileStore) read() ([]model.SelectionEvent, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read store", err)
	}
	events, err := decodeDocument(data)
	if err != nil {
		return nil, corruptErr(s.path, err)
	}
	return events, nil
}

func (s *FileStore) write(events []model.SelectionEvent) error {
	data, err := encodeDocument(events)
	if err != nil {
		return storageErr("encode store", err)
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return storageErr("create temp file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageErr("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return storageErr("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return storageErr("replace store", err)
	}
	committed = true
	return nil
}

// quarantine moves the current document aside as "<path>.corrupt-<unix>".
func (s *FileStore) quarantine(ctx context.Context) error {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, s.settings.now().UnixNano())
	err := os.Rename(s.path, target)
	switch {
	case err == nil:
		s.settings.logger.Warn(ctx, "analytics history set aside",
			logger.String("path", s.path),
			logger.String("moved_to", target),
		)
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return storageErr("quarantine store", err)
	}
}
