package ctl

import (
	"fmt"
	"math/rand"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/recorder"
)

// Score bands for synthetic sections.
type band struct {
	min, span float64
}

var (
	eliteBand   = band{9.0, 1.0}
	highBand    = band{7.0, 2.0}
	midHighBand = band{6.0, 2.0}
	averageBand = band{3.0, 4.0}
	midLowBand  = band{2.0, 2.0}
	lowBand     = band{0.1, 2.9}
	veryLowBand = band{0.1, 0.9}
	wideBand    = band{0.1, 9.9}
)

// seedCatalog assigns each synthetic section a fixed quality band so a
// seeded history has clearly trusted and clearly weak sections.
var seedCatalog = []struct {
	id   model.SectionRef
	band band
}{
	{"core_insight", eliteBand},
	{"expert_opinion", highBand},
	{"stats", midHighBand},
	{"timeline", averageBand},
	{"background", midLowBand},
	{"outlook", wideBand},
	{"case_study", lowBand},
	{"faq", veryLowBand},
}

var seedKeywords = []string{"ESS", "battery", "grid", "solar", "policy", "market"}

const (
	minSeedSections = 3
	maxSeedSections = 5
	minSeedKeywords = 1
	maxSeedKeywords = 3
)

// GenerateSelections returns n synthetic outcomes. The same seed always
// yields the same outcomes, article ids included.
func GenerateSelections(n int, seed int64) []recorder.Input {
	r := rand.New(rand.NewSource(seed))
	out := make([]recorder.Input, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, generateSelection(r, fmt.Sprintf("seed-%d-%05d", seed, i)))
	}
	return out
}

func generateSelection(r *rand.Rand, articleID string) recorder.Input {
	picked := r.Perm(len(seedCatalog))[:between(r, minSeedSections, maxSeedSections)]
	sections := make([]model.SectionRef, 0, len(picked))
	scores := make(map[model.SectionRef]float64, len(picked))
	for _, idx := range picked {
		entry := seedCatalog[idx]
		sections = append(sections, entry.id)
		scores[entry.id] = entry.band.min + r.Float64()*entry.band.span
	}

	kw := r.Perm(len(seedKeywords))[:between(r, minSeedKeywords, maxSeedKeywords)]
	keywords := make([]string, 0, len(kw))
	for _, idx := range kw {
		keywords = append(keywords, seedKeywords[idx])
	}

	return recorder.Input{
		ArticleID: articleID,
		Keywords:  keywords,
		Sections:  sections,
		Scores:    scores,
	}
}

// between returns a uniform int in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}
