// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Score bounds for a rendered section's quality judgment.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// SectionRef is the canonical identifier of a content section.
type SectionRef string

// String returns the raw identifier.
func (r SectionRef) String() string { return string(r) }

// SelectionEvent is one recorded outcome of a generation cycle.
// It is immutable once appended to the store.
type SelectionEvent struct {
	ArticleID string                 // caller supplied or generated id
	Timestamp time.Time              // when the outcome was recorded (UTC)
	Keywords  []string               // article keywords in priority order
	Sections  []SectionRef           // chosen sections in render order
	Scores    map[SectionRef]float64 // quality score per section, 0..10
}

// ScoredSection pairs a section with an aggregated score and its sample size.
type ScoredSection struct {
	Section SectionRef `json:"section"`
	Score   float64    `json:"score"`
	Count   int        `json:"count"`
}

// NewSelectionEvent builds a sanitized event: keywords are trimmed and empty
// ones dropped, section ids are trimmed and deduplicated, non-finite scores
// are dropped and the rest clamped into [MinScore, MaxScore]. Scored sections
// missing from sections are appended in lexical order.
func NewSelectionEvent(articleID string, ts time.Time, keywords []string, sections []SectionRef, scores map[SectionRef]float64) SelectionEvent {
	ev := SelectionEvent{
		ArticleID: articleID,
		Timestamp: ts.UTC(),
		Keywords:  CleanKeywords(keywords),
		Scores:    make(map[SectionRef]float64, len(scores)),
	}

	for id, score := range scores {
		id = SectionRef(strings.TrimSpace(string(id)))
		if id == "" || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		ev.Scores[id] = ClampScore(score)
	}

	seen := make(map[SectionRef]struct{}, len(sections)+len(ev.Scores))
	for _, id := range sections {
		id = SectionRef(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ev.Sections = append(ev.Sections, id)
	}

	var extra []SectionRef
	for id := range ev.Scores {
		if _, ok := seen[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	ev.Sections = append(ev.Sections, extra...)

	return ev
}

// CleanKeywords trims keywords and drops empty entries, preserving order.
func CleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// SortScored orders sections by score desc, then sample count desc, then id asc.
func SortScored(entries []ScoredSection) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Section < b.Section
	})
}
