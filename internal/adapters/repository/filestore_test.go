package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/cardsections/internal/domain/model"
)

func sampleEvent(id string, keywords []string, scores map[model.SectionRef]float64) model.SelectionEvent {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	return model.NewSelectionEvent(id, ts, keywords, nil, scores)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "analytics.json"))
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := store.Snapshot().Events; n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestFileStore_WhitespaceFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	store := NewFileStore(path)
	defer store.Close()

	ev := sampleEvent("a1", []string{"ESS"}, map[model.SectionRef]float64{"core_insight": 8, "timeline": 5})
	if err := store.AppendEvent(ctx, ev); err != nil {
		t.Fatalf("append: %v", err)
	}

	reopened := NewFileStore(path)
	defer reopened.Close()
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	events := reopened.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ArticleID != "a1" || !got.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("unexpected event header: %+v", got)
	}
	if got.Scores["core_insight"] != 8 || got.Scores["timeline"] != 5 {
		t.Errorf("unexpected scores: %v", got.Scores)
	}
	if fmt.Sprint(got.Sections) != fmt.Sprint(ev.Sections) {
		t.Errorf("expected sections %v, got %v", ev.Sections, got.Sections)
	}
	if stat := reopened.Snapshot().Stat("core_insight"); stat.Count != 1 || stat.AvgScore() != 8 {
		t.Errorf("unexpected aggregate: %+v", stat)
	}
}

func TestFileStore_PersistedLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	store := NewFileStore(path)
	defer store.Close()

	if err := store.AppendEvent(ctx, sampleEvent("a1", []string{"k"}, map[model.SectionRef]float64{"stats": 7})); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string][]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	records := doc["selections"]
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	for _, key := range []string{"article_id", "timestamp", "keywords", "sections", "scores"} {
		if _, ok := records[0][key]; !ok {
			t.Errorf("record missing %q", key)
		}
	}
	if ts := records[0]["timestamp"]; ts != "2024-05-01T12:00:00.123456789Z" {
		t.Errorf("unexpected timestamp %v", ts)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	if err := os.WriteFile(path, []byte(`{"selections": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	fixed := time.Unix(1700000000, 42)
	store := NewFileStore(path, WithClock(func() time.Time { return fixed }))
	defer store.Close()

	err := store.Load(ctx)
	if !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	aside := fmt.Sprintf("%s.corrupt-%d", path, fixed.UnixNano())
	if _, err := os.Stat(aside); err != nil {
		t.Errorf("expected quarantined file %s: %v", aside, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected original file moved away, got %v", err)
	}

	if err := store.AppendEvent(ctx, sampleEvent("a2", nil, map[model.SectionRef]float64{"x": 1})); err != nil {
		t.Fatalf("append after reset: %v", err)
	}
	if n := store.Snapshot().Events; n != 1 {
		t.Errorf("expected 1 event after reset, got %d", n)
	}
}

func TestFileStore_WrongShapeIsCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")

	cases := []string{
		`{"other": []}`,
		`{"selections": null}`,
		`{"selections": []} {"selections": []}`,
		`{"selections": [{"article_id": "a", "timestamp": "yesterday", "keywords": [], "scores": {}}]}`,
	}
	for _, body := range cases {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		store := NewFileStore(path)
		if err := store.Load(ctx); !IsCorrupt(err) {
			t.Errorf("expected corrupt data for %s, got %v", body, err)
		}
		store.Close()
	}
}

func TestFileStore_CorruptOnAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	store := NewFileStore(path)
	defer store.Close()

	if err := store.AppendEvent(ctx, sampleEvent("a1", nil, map[model.SectionRef]float64{"x": 4})); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendEvent(ctx, sampleEvent("a2", nil, map[model.SectionRef]float64{"x": 6})); err != nil {
		t.Fatalf("append over corrupt file: %v", err)
	}

	reopened := NewFileStore(path)
	defer reopened.Close()
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if n := len(reopened.Events()); n != 2 {
		t.Errorf("expected in-memory history to be rewritten (2 events), got %d", n)
	}
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Errorf("expected one quarantined file, got %v", matches)
	}
}

func TestFileStore_AppendFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(filepath.Join(blocker, "analytics.json"))
	defer store.Close()

	before := store.Snapshot()
	err := store.AppendEvent(ctx, sampleEvent("a1", []string{"k"}, map[model.SectionRef]float64{"x": 9}))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if store.Snapshot() != before || store.Snapshot().Events != 0 {
		t.Error("expected snapshot to be unchanged after a failed append")
	}
	if len(store.Events()) != 0 {
		t.Error("expected no events after a failed append")
	}
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")

	// Two handles on one path behave like two processes sharing the file.
	first := NewFileStore(path, WithLockTimeout(10*time.Second))
	second := NewFileStore(path, WithLockTimeout(10*time.Second))
	defer first.Close()
	defer second.Close()

	const perWriter = 25
	var wg sync.WaitGroup
	errs := make(chan error, 4*perWriter)
	for w, store := range []*FileStore{first, first, second, second} {
		wg.Add(1)
		go func(w int, store *FileStore) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				errs <- store.AppendEvent(ctx, sampleEvent(id, []string{"k"}, map[model.SectionRef]float64{"s": 5}))
			}
		}(w, store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	reader := NewFileStore(path)
	defer reader.Close()
	if err := reader.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	events := reader.Events()
	if len(events) != 4*perWriter {
		t.Fatalf("expected %d events, got %d", 4*perWriter, len(events))
	}
	seen := make(map[string]bool, len(events))
	for _, ev := range events {
		if seen[ev.ArticleID] {
			t.Errorf("duplicate event %s", ev.ArticleID)
		}
		seen[ev.ArticleID] = true
	}
	if stat := reader.Snapshot().Stat("s"); stat.Count != 4*perWriter {
		t.Errorf("expected section count %d, got %d", 4*perWriter, stat.Count)
	}
}

func TestFileStore_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "analytics.json"))
	defer store.Close()

	for i, kw := range []string{"ESS", "market", "ESS"} {
		ev := sampleEvent(fmt.Sprintf("a%d", i), []string{kw}, map[model.SectionRef]float64{"stats": float64(i + 5), "timeline": 3})
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	incremental := store.Snapshot()
	if err := store.RebuildAggregates(ctx); err != nil {
		t.Fatal(err)
	}
	once := store.Snapshot()
	if err := store.RebuildAggregates(ctx); err != nil {
		t.Fatal(err)
	}
	twice := store.Snapshot()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("rebuild not idempotent (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(incremental, once); diff != "" {
		t.Errorf("incremental aggregates differ from replay (-incremental +replay):\n%s", diff)
	}
}

func TestFileStore_RebuildPicksUpOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	reader := NewFileStore(path)
	writer := NewFileStore(path)
	defer reader.Close()
	defer writer.Close()

	if err := reader.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := writer.AppendEvent(ctx, sampleEvent("a1", nil, map[model.SectionRef]float64{"x": 2})); err != nil {
		t.Fatal(err)
	}
	if reader.Snapshot().Events != 0 {
		t.Fatal("reader should not see the write before rebuilding")
	}
	if err := reader.RebuildAggregates(ctx); err != nil {
		t.Fatal(err)
	}
	if reader.Snapshot().Events != 1 {
		t.Errorf("expected 1 event after rebuild, got %d", reader.Snapshot().Events)
	}
}

func TestFileStore_ZonelessTimestampsAreUTC(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	doc := `{"selections":[
  {"article_id":"a1","timestamp":"2024-05-01T10:20:30.123456","keywords":["ESS"],"scores":{"core_insight":8}},
  {"article_id":"a2","timestamp":"2024-05-01T10:20:30","keywords":["ESS"],"scores":{"timeline":4}},
  {"article_id":"a3","timestamp":"2024-05-01","keywords":[],"scores":{"stats":6}},
  {"article_id":"a4","timestamp":"2024-05-01T19:20:30+09:00","keywords":[],"scores":{"stats":7}}
]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := store.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	want := []time.Time{
		time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC),
		time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
	}
	for i, ev := range events {
		if !ev.Timestamp.Equal(want[i]) || ev.Timestamp.Location() != time.UTC {
			t.Errorf("event %d: timestamp %v, want %v", i, ev.Timestamp, want[i])
		}
	}
	if got := store.Snapshot().Stat("core_insight").Count; got != 1 {
		t.Errorf("expected core_insight count 1, got %d", got)
	}
}

func TestFileStore_UnparsableTimestampIsCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	doc := `{"selections":[{"article_id":"a1","timestamp":"yesterday","keywords":[],"scores":{}}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	defer store.Close()

	if err := store.Load(ctx); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestFileStore_AppendAfterForeignResetFollowsDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analytics.json")
	a := NewFileStore(path)
	b := NewFileStore(path)
	defer a.Close()
	defer b.Close()

	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.AppendEvent(ctx, sampleEvent("old", nil, map[model.SectionRef]float64{"old": 5})); err != nil {
		t.Fatal(err)
	}
	if err := b.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.AppendEvent(ctx, sampleEvent("fromB", nil, map[model.SectionRef]float64{"fromB": 6})); err != nil {
		t.Fatal(err)
	}
	if err := a.AppendEvent(ctx, sampleEvent("fromA", nil, map[model.SectionRef]float64{"fromA": 7})); err != nil {
		t.Fatal(err)
	}

	fresh := NewFileStore(path)
	defer fresh.Close()
	if err := fresh.Load(ctx); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, ev := range a.Events() {
		ids = append(ids, ev.ArticleID)
	}
	if diff := cmp.Diff([]string{"fromB", "fromA"}, ids); diff != "" {
		t.Errorf("in-memory log differs from disk (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fresh.Snapshot(), a.Snapshot()); diff != "" {
		t.Errorf("aggregates differ from a replay of the disk log (-disk +memory):\n%s", diff)
	}
	if a.Snapshot().Stat("old").Count != 0 {
		t.Error("reset history still counted in aggregates")
	}
}
