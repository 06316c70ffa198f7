package optimizer_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/cardsections/internal/domain/correlation"
	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/optimizer"
	"github.com/okian/cardsections/internal/domain/reliability"
	. "github.com/smartystreets/goconvey/convey"
)

type staticSource struct {
	agg *model.Aggregates
}

func (s staticSource) Snapshot() *model.Aggregates { return s.agg }

func newOptimizer(events []model.SelectionEvent, opts ...optimizer.Option) *optimizer.Optimizer {
	src := staticSource{agg: model.Replay(events)}
	return optimizer.New(reliability.New(src), correlation.New(src), opts...)
}

func event(keywords []string, scores map[model.SectionRef]float64) model.SelectionEvent {
	return model.NewSelectionEvent("", time.Now(), keywords, nil, scores)
}

func TestOptimize_EmptyHistory(t *testing.T) {
	Convey("Given a store with no history", t, func() {
		opt := newOptimizer(nil)
		ctx := context.Background()

		Convey("When optimizing a baseline", func() {
			res := opt.Optimize(ctx, []string{"ESS"}, []any{"core_insight"})

			Convey("Then nothing is trusted and nothing is suggested", func() {
				So(res.Sections, ShouldBeEmpty)
				So(res.Reasons, ShouldBeEmpty)
				So(res.Stats.Dropped, ShouldEqual, 1)
			})
		})

		Convey("When the baseline is empty as well", func() {
			res := opt.Optimize(ctx, nil, nil)

			Convey("Then an empty result is returned", func() {
				So(res.Sections, ShouldBeEmpty)
				So(res.Reasons, ShouldBeEmpty)
			})
		})
	})

	Convey("Given no section history but keyword history elsewhere", t, func() {
		opt := newOptimizer([]model.SelectionEvent{
			event([]string{"ESS"}, map[model.SectionRef]float64{"stats": 6, "timeline": 6.5, "faq": 3}),
		})

		Convey("When the baseline section was never observed", func() {
			res := opt.Optimize(context.Background(), []string{"ESS"}, []any{"core_insight"})

			Convey("Then the output comes from keyword history only", func() {
				So(res.Sections[0], ShouldEqual, model.SectionRef("timeline"))
				So(res.Reasons["timeline"], ShouldEqual, "replaced core_insight: low reliability 0%")
				So(res.Sections, ShouldContain, model.SectionRef("stats"))
				So(res.Reasons["stats"], ShouldEqual, "keyword match on 'ESS' (score 6.0)")
			})
		})
	})
}

func TestOptimize_ReplacesUnreliable(t *testing.T) {
	Convey("Given history with a trusted and an untrusted section", t, func() {
		opt := newOptimizer([]model.SelectionEvent{
			event([]string{"ESS"}, map[model.SectionRef]float64{"core_insight": 8, "timeline": 5, "expert_opinion": 7.5}),
		})

		Convey("When optimizing core_insight and timeline for ESS", func() {
			res := opt.Optimize(context.Background(), []string{"ESS"}, []any{"core_insight", "timeline"})

			Convey("Then timeline is replaced by expert_opinion", func() {
				So(res.Sections, ShouldResemble, []model.SectionRef{"core_insight", "expert_opinion"})
				So(res.Reasons["expert_opinion"], ShouldEqual, "replaced timeline: low reliability 50%")
				So(res.Reasons, ShouldNotContainKey, model.SectionRef("core_insight"))
				So(res.Stats.Kept, ShouldEqual, 1)
				So(res.Stats.Replaced, ShouldEqual, 1)
			})
		})

		Convey("When the baseline arrives in mixed shapes", func() {
			res := opt.Optimize(context.Background(), []string{"ESS"}, []any{
				[]any{"core_insight", 9},
				struct{ X int }{1},
				map[string]any{"id": "core_insight"},
			})

			Convey("Then malformed and duplicate entries are skipped", func() {
				So(res.Sections[0], ShouldEqual, model.SectionRef("core_insight"))
				So(res.Stats.Rejected, ShouldEqual, 1)
			})
		})
	})
}

func TestOptimize_KeywordAugmentation(t *testing.T) {
	Convey("Given history for several keywords", t, func() {
		opt := newOptimizer([]model.SelectionEvent{
			event([]string{"k1"}, map[model.SectionRef]float64{"a": 9, "b": 8, "c": 7}),
			event([]string{"k2"}, map[model.SectionRef]float64{"d": 9, "e": 8}),
			event([]string{"k3"}, map[model.SectionRef]float64{"f": 9, "g": 8}),
			event([]string{"k4"}, map[model.SectionRef]float64{"h": 10}),
		})

		Convey("When optimizing an empty baseline", func() {
			res := opt.Optimize(context.Background(), []string{"k1", "k2", "k3", "k4"}, nil)

			Convey("Then the first keywords contribute two sections each until the cap", func() {
				So(res.Sections, ShouldResemble, []model.SectionRef{"a", "b", "d", "e", "f"})
				So(res.Reasons["a"], ShouldEqual, "keyword match on 'k1' (score 9.0)")
				So(res.Reasons["f"], ShouldEqual, "keyword match on 'k3' (score 9.0)")
				So(res.Reasons, ShouldNotContainKey, model.SectionRef("h"))
				So(len(res.Reasons), ShouldEqual, 5)
			})
		})

		Convey("When the limits are configured", func() {
			custom := newOptimizer([]model.SelectionEvent{
				event([]string{"k1"}, map[model.SectionRef]float64{"a": 9, "b": 8, "c": 7}),
				event([]string{"k4"}, map[model.SectionRef]float64{"h": 10}),
			},
				optimizer.WithMaxSections(3),
				optimizer.WithKeywordLimit(1),
				optimizer.WithSectionsPerKeyword(3),
			)
			res := custom.Optimize(context.Background(), []string{"k1", "k4"}, nil)

			Convey("Then only the configured keyword and count are used", func() {
				So(res.Sections, ShouldResemble, []model.SectionRef{"a", "b", "c"})
			})
		})

		Convey("When blank keywords lead the list", func() {
			res := opt.Optimize(context.Background(), []string{"", " ", "", "k4"}, nil)

			Convey("Then they use up the keyword limit", func() {
				So(res.Sections, ShouldBeEmpty)
				So(res.Reasons, ShouldBeEmpty)
			})
		})

		Convey("When a blank keyword sits inside the limit", func() {
			res := opt.Optimize(context.Background(), []string{"k1", " ", "k4", "k2"}, nil)

			Convey("Then only the non-blank leading keywords contribute", func() {
				So(res.Sections, ShouldResemble, []model.SectionRef{"a", "b", "h"})
				So(res.Reasons["h"], ShouldEqual, "keyword match on 'k4' (score 10.0)")
			})
		})
	})
}

func TestOptimize_Properties(t *testing.T) {
	Convey("Given randomized history and baselines", t, func() {
		rng := rand.New(rand.NewSource(7))
		pool := []model.SectionRef{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
		keywords := []string{"k1", "k2", "k3", "k4"}

		var events []model.SelectionEvent
		for i := 0; i < 60; i++ {
			scores := make(map[model.SectionRef]float64)
			for j := 0; j < 3; j++ {
				scores[pool[rng.Intn(len(pool))]] = float64(rng.Intn(11))
			}
			events = append(events, event([]string{keywords[rng.Intn(len(keywords))]}, scores))
		}
		src := staticSource{agg: model.Replay(events)}
		rel := reliability.New(src)
		opt := optimizer.New(rel, correlation.New(src))

		Convey("Then every result is capped, unique and keeps trusted sections", func() {
			for trial := 0; trial < 200; trial++ {
				var baseline []any
				for j := rng.Intn(9); j > 0; j-- {
					switch rng.Intn(4) {
					case 0:
						baseline = append(baseline, string(pool[rng.Intn(len(pool))]))
					case 1:
						baseline = append(baseline, []any{string(pool[rng.Intn(len(pool))]), rng.Intn(10)})
					case 2:
						baseline = append(baseline, map[string]any{"id": string(pool[rng.Intn(len(pool))])})
					default:
						baseline = append(baseline, rng.Intn(100))
					}
				}
				res := opt.Optimize(context.Background(), keywords[:rng.Intn(len(keywords)+1)], baseline)

				So(len(res.Sections), ShouldBeLessThanOrEqualTo, optimizer.DefaultMaxSections)

				seen := make(map[model.SectionRef]bool)
				for _, id := range res.Sections {
					So(seen[id], ShouldBeFalse)
					seen[id] = true
				}
				for id := range res.Reasons {
					So(seen[id], ShouldBeTrue)
				}

				missingTrusted := 0
				for _, raw := range baseline {
					var id model.SectionRef
					switch v := raw.(type) {
					case string:
						id = model.SectionRef(v)
					case []any:
						id = model.SectionRef(v[0].(string))
					case map[string]any:
						id = model.SectionRef(v["id"].(string))
					default:
						continue
					}
					if rel.IsTrusted(id) && !seen[id] {
						missingTrusted++
					}
				}
				if len(res.Sections) < optimizer.DefaultMaxSections {
					So(missingTrusted, ShouldEqual, 0)
				}
			}
		})
	})
}
