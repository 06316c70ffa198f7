package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/pkg/logger"
	"github.com/okian/cardsections/pkg/metrics"

	_ "modernc.org/sqlite"
)

const selectionsTable = "selections"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS selections (
    selection_id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id   TEXT NOT NULL,
    recorded_at  TEXT NOT NULL,
    keywords     TEXT NOT NULL,  -- JSON array of strings
    sections     TEXT NOT NULL,  -- JSON array of section ids, render order
    scores       TEXT NOT NULL   -- JSON object: {"section_id": score}
);
`

// SQLiteStore keeps one row per selection event. Appends run in a
// transaction; aggregates are derived by replaying rows in insertion order.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	settings settings

	mu    sync.Mutex
	state *logState
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	st := newSettings(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	// One connection keeps in-memory databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	pragmas := fmt.Sprintf("PRAGMA busy_timeout = %d;", st.lockTimeout.Milliseconds())
	if _, err := db.Exec(pragmas); err != nil {
		_ = db.Close()
		return nil, storageErr("configure database", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, storageErr("initialize schema", err)
	}

	return &SQLiteStore{
		db:       db,
		path:     path,
		settings: st,
		state:    newLogState(),
	}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.readAll(ctx)
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

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev model.SelectionEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rec := toRecord(ev)
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return storageErr("encode keywords", err)
	}
	sections := rec.Sections
	if sections == nil {
		sections = []string{}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return storageErr("encode sections", err)
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return storageErr("encode scores", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin append", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO selections (article_id, recorded_at, keywords, sections, scores) VALUES (?, ?, ?, ?, ?)`,
		rec.ArticleID, rec.Timestamp, string(keywords), string(sectionsJSON), string(scores),
	); err != nil {
		return storageErr("insert selection", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit append", err)
	}

	s.state.appendOne(ev)
	return nil
}

func (s *SQLiteStore) RebuildAggregates(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.readAll(ctx)
	if err != nil {
		return err
	}
	s.state.replace(events)
	metrics.RecordStoreRebuildDuration(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Reset renames the current table aside and recreates an empty one.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aside := fmt.Sprintf("%s_corrupt_%d", selectionsTable, s.settings.now().UnixNano())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin reset", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", selectionsTable, aside)); err != nil {
		return storageErr("set history aside", err)
	}
	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return storageErr("recreate schema", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit reset", err)
	}

	s.settings.logger.Warn(ctx, "analytics history set aside",
		logger.String("path", s.path),
		logger.String("moved_to", aside),
	)
	s.state.replace(nil)
	return nil
}

func (s *SQLiteStore) Snapshot() *model.Aggregates { return s.state.current() }

func (s *SQLiteStore) Events() []model.SelectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.state.events)
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return storageErr("close database", err)
	}
	return nil
}

// DB exposes the underlying handle for maintenance commands and tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) readAll(ctx context.Context) ([]model.SelectionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT selection_id, article_id, recorded_at, keywords, sections, scores FROM selections ORDER BY selection_id`)
	if err != nil {
		return nil, storageErr("query selections", err)
	}
	defer rows.Close()

	var events []model.SelectionEvent
	for rows.Next() {
		var (
			id                         int64
			rec                        selectionRecord
			keywords, sections, scores string
		)
		if err := rows.Scan(&id, &rec.ArticleID, &rec.Timestamp, &keywords, &sections, &scores); err != nil {
			return nil, storageErr("scan selection", err)
		}
		if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
			return nil, corruptErr(fmt.Sprintf("selection %d keywords", id), err)
		}
		if err := json.Unmarshal([]byte(sections), &rec.Sections); err != nil {
			return nil, corruptErr(fmt.Sprintf("selection %d sections", id), err)
		}
		if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
			return nil, corruptErr(fmt.Sprintf("selection %d scores", id), err)
		}
		ev, err := fromRecord(rec)
		if err != nil {
			return nil, corruptErr(fmt.Sprintf("selection %d", id), err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate selections", err)
	}
	return events, nil
}
