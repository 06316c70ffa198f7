// Package reliability turns aggregate section stats into normalized trust scores.
package reliability

import (
	"math"
	"sort"

	"github.com/okian/cardsections/internal/domain/model"
)

// DefaultTrustThreshold is the minimum reliability for a section to be trusted.
const DefaultTrustThreshold = 0.7

// Source provides the current aggregate snapshot.
type Source interface {
	Snapshot() *model.Aggregates
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithTrustThreshold sets the trust threshold. Values outside [0,1] are ignored.
func WithTrustThreshold(threshold float64) Option {
	return func(c *Calculator) {
		if threshold >= 0 && threshold <= 1 {
			c.threshold = threshold
		}
	}
}

// Entry is one row of a reliability report.
type Entry struct {
	Section     model.SectionRef `json:"section"`
	Reliability float64          `json:"reliability"`
	Trusted     bool             `json:"trusted"`
	Count       int              `json:"count"`
	AvgScore    float64          `json:"avg_score"`
}

// Calculator reads reliability from the store snapshot. It holds no state of
// its own beyond the threshold.
type Calculator struct {
	source    Source
	threshold float64
}

// New creates a Calculator over source.
func New(source Source, opts ...Option) *Calculator {
	c := &Calculator{
		source:    source,
		threshold: DefaultTrustThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the configured trust threshold.
func (c *Calculator) Threshold() float64 { return c.threshold }

// Reliability returns avg_score/10 clamped to [0,1], or 0 for unseen sections.
func (c *Calculator) Reliability(id model.SectionRef) float64 {
	return fromStat(c.snapshot().Stat(id))
}

// IsTrusted reports whether the section meets the trust threshold.
func (c *Calculator) IsTrusted(id model.SectionRef) bool {
	return c.Reliability(id) >= c.threshold
}

// Lookup returns the full report entry for one section.
func (c *Calculator) Lookup(id model.SectionRef) Entry {
	return c.entry(id, c.snapshot().Stat(id))
}

// Report lists every observed section by reliability desc, then id asc.
func (c *Calculator) Report() []Entry {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	out := make([]Entry, 0, len(snap.Sections))
	for id, st := range snap.Sections {
		out = append(out, c.entry(id, st))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reliability != out[j].Reliability {
			return out[i].Reliability > out[j].Reliability
		}
		return out[i].Section < out[j].Section
	})
	return out
}

func (c *Calculator) entry(id model.SectionRef, st model.SectionStat) Entry {
	r := fromStat(st)
	return Entry{
		Section:     id,
		Reliability: r,
		Trusted:     r >= c.threshold,
		Count:       st.Count,
		AvgScore:    st.AvgScore(),
	}
}

func (c *Calculator) snapshot() *model.Aggregates {
	if c.source == nil {
		return nil
	}
	return c.source.Snapshot()
}

func fromStat(st model.SectionStat) float64 {
	if st.Count < 1 {
		return 0
	}
	return math.Max(0, math.Min(1, st.AvgScore()/model.MaxScore))
}
