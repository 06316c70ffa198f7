package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cardsections/internal/domain/model"
)

// document is the persisted JSON layout:
//
//	{"selections": [{"article_id", "timestamp", "keywords", "sections", "scores"}]}
//
// sections is optional; older logs without it fall back to the scored ids.
type document struct {
	Selections *[]selectionRecord `json:"selections"`
}

type selectionRecord struct {
	ArticleID string             `json:"article_id"`
	Timestamp string             `json:"timestamp"`
	Keywords  []string           `json:"keywords"`
	Sections  []string           `json:"sections,omitempty"`
	Scores    map[string]float64 `json:"scores"`
}

func toRecord(ev model.SelectionEvent) selectionRecord {
	rec := selectionRecord{
		ArticleID: ev.ArticleID,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Keywords:  ev.Keywords,
		Scores:    make(map[string]float64, len(ev.Scores)),
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	for _, id := range ev.Sections {
		rec.Sections = append(rec.Sections, string(id))
	}
	for id, score := range ev.Scores {
		rec.Scores[string(id)] = score
	}
	return rec
}

func fromRecord(rec selectionRecord) (model.SelectionEvent, error) {
	var ts time.Time
	if rec.Timestamp != "" {
		parsed, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return model.SelectionEvent{}, err
		}
		ts = parsed
	}
	sections := make([]model.SectionRef, 0, len(rec.Sections))
	for _, id := range rec.Sections {
		sections = append(sections, model.SectionRef(id))
	}
	scores := make(map[model.SectionRef]float64, len(rec.Scores))
	for id, score := range rec.Scores {
		scores[model.SectionRef(id)] = score
	}
	return model.NewSelectionEvent(rec.ArticleID, ts, rec.Keywords, sections, scores), nil
}

// timestampLayouts are the ISO-8601 forms accepted on read. Zoneless forms
// are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: %w", raw, firstErr)
}

// encodeDocument renders events in the persisted layout.
func encodeDocument(events []model.SelectionEvent) ([]byte, error) {
	records := make([]selectionRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, toRecord(ev))
	}
	return json.MarshalIndent(document{Selections: &records}, "", "  ")
}

// decodeDocument parses a persisted log. An all-whitespace input is an empty
// log; anything else must match the layout exactly.
func decodeDocument(data []byte) ([]model.SelectionEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after document")
	}
	if doc.Selections == nil {
		return nil, errors.New(`missing "selections"`)
	}
	events := make([]model.SelectionEvent, 0, len(*doc.Selections))
	for i, rec := range *doc.Selections {
		ev, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("selection %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
