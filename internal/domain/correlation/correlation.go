// Package correlation ranks sections that historically performed well for a keyword.
package correlation

import (
	"strings"

	"github.com/okian/cardsections/internal/domain/model"
)

// Source provides the current aggregate snapshot.
type Source interface {
	Snapshot() *model.Aggregates
}

// Index answers keyword to section queries over the store snapshot.
type Index struct {
	source Source
}

// New creates an Index over source.
func New(source Source) *Index {
	return &Index{source: source}
}

// BestSectionsForKeyword returns up to topN sections observed with keyword,
// ranked by mean score desc, then sample count desc, then id asc. A topN of
// zero or less returns every section. An unknown keyword yields nil.
func (x *Index) BestSectionsForKeyword(keyword string, topN int) []model.ScoredSection {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || x.source == nil {
		return nil
	}
	stats := x.source.Snapshot().KeywordStats(keyword)
	if len(stats) == 0 {
		return nil
	}

	ranked := make([]model.ScoredSection, 0, len(stats))
	for id, st := range stats {
		ranked = append(ranked, model.ScoredSection{Section: id, Score: st.AvgScore(), Count: st.Count})
	}
	model.SortScored(ranked)

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// Alternatives ranks every section correlated with any of keywords, except
// exclude. A section seen under several keywords keeps its best keyword score.
func (x *Index) Alternatives(exclude model.SectionRef, keywords []string) []model.ScoredSection {
	best := make(map[model.SectionRef]model.ScoredSection)
	for _, kw := range keywords {
		for _, cand := range x.BestSectionsForKeyword(kw, 0) {
			if cand.Section == exclude {
				continue
			}
			cur, ok := best[cand.Section]
			if !ok || better(cand, cur) {
				best[cand.Section] = cand
			}
		}
	}
	if len(best) == 0 {
		return nil
	}

	out := make([]model.ScoredSection, 0, len(best))
	for _, cand := range best {
		out = append(out, cand)
	}
	model.SortScored(out)
	return out
}

// FindAlternative returns the highest-scoring section correlated with any of
// keywords that is not id. The bool is false when there is none.
func (x *Index) FindAlternative(id model.SectionRef, keywords []string) (model.SectionRef, bool) {
	alts := x.Alternatives(id, keywords)
	if len(alts) == 0 {
		return "", false
	}
	return alts[0].Section, true
}

func better(a, b model.ScoredSection) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Count > b.Count
}
