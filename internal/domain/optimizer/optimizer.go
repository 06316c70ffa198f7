// Package optimizer chooses which named sections an article's card should use.
//
// Optimize runs three steps over the caller's baseline: normalize the loosely
// shaped input into canonical ids, replace sections whose historical
// reliability is below the trust threshold with a keyword-correlated
// alternative, then top the list up with the best sections for the leading
// keywords. The result never exceeds the configured cap and never contains
// duplicates. Malformed input only ever shrinks the result.
package optimizer

import (
	"context"
	"fmt"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/section"
	"github.com/okian/cardsections/pkg/logger"
)

// Reliability is the subset of the reliability calculator the optimizer needs.
type Reliability interface {
	Reliability(id model.SectionRef) float64
	IsTrusted(id model.SectionRef) bool
}

// Correlations is the subset of the correlation index the optimizer needs.
type Correlations interface {
	BestSectionsForKeyword(keyword string, topN int) []model.ScoredSection
	Alternatives(exclude model.SectionRef, keywords []string) []model.ScoredSection
}

// Stats counts what each pass did during one Optimize call.
type Stats struct {
	Rejected  int // baseline values dropped during normalization
	Kept      int // trusted baseline sections kept
	Replaced  int // untrusted sections swapped for an alternative
	Dropped   int // untrusted sections with no usable alternative
	Augmented int // sections added from keyword history
}

// Result is the optimized section list with a reason per added section.
type Result struct {
	Sections []model.SectionRef
	Reasons  map[model.SectionRef]string
	Stats    Stats
}

// Optimizer applies the reliability and keyword passes.
type Optimizer struct {
	reliability        Reliability
	correlations       Correlations
	maxSections        int
	keywordLimit       int
	sectionsPerKeyword int
	logger             logger.Logger
}

// New creates an Optimizer.
func New(rel Reliability, corr Correlations, opts ...Option) *Optimizer {
	o := &Optimizer{
		reliability:        rel,
		correlations:       corr,
		maxSections:        DefaultMaxSections,
		keywordLimit:       DefaultKeywordLimit,
		sectionsPerKeyword: DefaultSectionsPerKeyword,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns the section list to render for an article.
func (o *Optimizer) Optimize(ctx context.Context, keywords []string, baseline []any) Result {
	res := Result{
		Sections: make([]model.SectionRef, 0, o.maxSections),
		Reasons:  make(map[model.SectionRef]string),
	}
	// Augmentation reads only the leading raw entries; blanks among them
	// count against the limit.
	leading := model.CleanKeywords(keywords[:min(len(keywords), o.keywordLimit)])
	keywords = model.CleanKeywords(keywords)
	present := make(map[model.SectionRef]struct{}, o.maxSections)
	add := func(id model.SectionRef) {
		res.Sections = append(res.Sections, id)
		present[id] = struct{}{}
	}

	ids := section.Normalize(baseline, func(ve *section.ValidationError) {
		res.Stats.Rejected++
		o.logger.Debug(ctx, "dropping malformed baseline section",
			logger.String("reason", ve.Reason),
			logger.String("type", fmt.Sprintf("%T", ve.Value)),
		)
	})

	for _, id := range ids {
		if _, dup := present[id]; dup {
			continue
		}
		if o.reliability.IsTrusted(id) {
			add(id)
			res.Stats.Kept++
			continue
		}
		alt, ok := o.alternative(id, keywords, present)
		if !ok {
			res.Stats.Dropped++
			continue
		}
		add(alt)
		res.Reasons[alt] = fmt.Sprintf("replaced %s: low reliability %.0f%%", id, o.reliability.Reliability(id)*100)
		res.Stats.Replaced++
	}

	for _, kw := range leading {
		if len(res.Sections) >= o.maxSections {
			break
		}
		for _, cand := range o.correlations.BestSectionsForKeyword(kw, o.sectionsPerKeyword) {
			if len(res.Sections) >= o.maxSections {
				break
			}
			if _, dup := present[cand.Section]; dup {
				continue
			}
			add(cand.Section)
			res.Reasons[cand.Section] = fmt.Sprintf("keyword match on '%s' (score %.1f)", kw, cand.Score)
			res.Stats.Augmented++
		}
	}

	if len(res.Sections) > o.maxSections {
		for _, id := range res.Sections[o.maxSections:] {
			delete(res.Reasons, id)
		}
		res.Sections = res.Sections[:o.maxSections]
	}
	return res
}

// alternative picks the best correlated section not already in the output.
func (o *Optimizer) alternative(id model.SectionRef, keywords []string, present map[model.SectionRef]struct{}) (model.SectionRef, bool) {
	for _, cand := range o.correlations.Alternatives(id, keywords) {
		if _, dup := present[cand.Section]; !dup {
			return cand.Section, true
		}
	}
	return "", false
}
