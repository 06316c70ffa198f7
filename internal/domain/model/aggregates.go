package model

// SectionStat is the derived running total for one section.
type SectionStat struct {
	Count    int     `json:"count"`
	ScoreSum float64 `json:"score_sum"`
}

// AvgScore returns ScoreSum/Count, or 0 when nothing was observed.
func (s SectionStat) AvgScore() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.ScoreSum / float64(s.Count)
}

func (s SectionStat) add(score float64) SectionStat {
	return SectionStat{Count: s.Count + 1, ScoreSum: s.ScoreSum + score}
}

// Aggregates is the derived cache over the event log. It is always
// reproducible by replaying the log and is never mutated after publication.
type Aggregates struct {
	Events   int                                   `json:"events"`
	Sections map[SectionRef]SectionStat            `json:"sections"`
	Keywords map[string]map[SectionRef]SectionStat `json:"keywords"`
}

// NewAggregates returns an empty aggregate set.
func NewAggregates() *Aggregates {
	return &Aggregates{
		Sections: make(map[SectionRef]SectionStat),
		Keywords: make(map[string]map[SectionRef]SectionStat),
	}
}

// Replay builds aggregates from scratch by applying events in log order.
func Replay(events []SelectionEvent) *Aggregates {
	a := NewAggregates()
	for _, ev := range events {
		a.apply(ev)
	}
	return a
}

// With returns a copy of a with ev applied. a itself is left untouched.
func (a *Aggregates) With(ev SelectionEvent) *Aggregates {
	next := a.clone()
	next.apply(ev)
	return next
}

// Stat returns the stat for a section (zero value when unseen).
func (a *Aggregates) Stat(id SectionRef) SectionStat {
	if a == nil {
		return SectionStat{}
	}
	return a.Sections[id]
}

// KeywordStats returns per-section stats for events tagged with keyword.
// The returned map must not be modified.
func (a *Aggregates) KeywordStats(keyword string) map[SectionRef]SectionStat {
	if a == nil {
		return nil
	}
	return a.Keywords[keyword]
}

func (a *Aggregates) apply(ev SelectionEvent) {
	a.Events++
	for id, score := range ev.Scores {
		a.Sections[id] = a.Sections[id].add(score)
	}

	seen := make(map[string]struct{}, len(ev.Keywords))
	for _, kw := range ev.Keywords {
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}

		stats := a.Keywords[kw]
		if stats == nil {
			stats = make(map[SectionRef]SectionStat, len(ev.Scores))
			a.Keywords[kw] = stats
		}
		for id, score := range ev.Scores {
			stats[id] = stats[id].add(score)
		}
	}
}

func (a *Aggregates) clone() *Aggregates {
	c := &Aggregates{
		Events:   a.Events,
		Sections: make(map[SectionRef]SectionStat, len(a.Sections)),
		Keywords: make(map[string]map[SectionRef]SectionStat, len(a.Keywords)),
	}
	for id, st := range a.Sections {
		c.Sections[id] = st
	}
	for kw, stats := range a.Keywords {
		inner := make(map[SectionRef]SectionStat, len(stats))
		for id, st := range stats {
			inner[id] = st
		}
		c.Keywords[kw] = inner
	}
	return c
}
