package ctl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/recorder"
)

// StatsAction prints the reliability table.
func StatsAction(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	w := c.App.Writer
	report := svc.ReliabilityReport()
	if len(report) == 0 {
		fmt.Fprintln(w, "No sections recorded")
		return nil
	}

	fmt.Fprintf(w, "%-24s %-12s %-8s %-8s %-8s\n", "SECTION", "RELIABILITY", "TRUSTED", "COUNT", "AVG")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, e := range report {
		fmt.Fprintf(w, "%-24s %-12.2f %-8t %-8d %-8.2f\n", e.Section, e.Reliability, e.Trusted, e.Count, e.AvgScore)
	}
	fmt.Fprintf(w, "\nTotal: %d sections over %d events\n", len(report), svc.GetStats()["events"])
	return nil
}

// BestAction prints the best sections for one keyword.
func BestAction(c *cli.Context) error {
	keyword := strings.TrimSpace(c.String("keyword"))
	if keyword == "" {
		return fmt.Errorf("%w: --keyword must not be blank", ErrUsage)
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	w := c.App.Writer
	best := svc.BestSections(keyword, c.Int("top"))
	if len(best) == 0 {
		fmt.Fprintf(w, "No sections recorded for keyword %q\n", keyword)
		return nil
	}

	fmt.Fprintf(w, "%-24s %-8s %-8s\n", "SECTION", "SCORE", "COUNT")
	fmt.Fprintln(w, strings.Repeat("-", 42))
	for _, s := range best {
		fmt.Fprintf(w, "%-24s %-8.2f %-8d\n", s.Section, s.Score, s.Count)
	}
	return nil
}

// OptimizeAction prints the optimized section list and the reason for each change.
func OptimizeAction(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	baseline := make([]any, 0, len(c.StringSlice("section")))
	for _, s := range c.StringSlice("section") {
		baseline = append(baseline, s)
	}
	res := svc.Optimize(c.Context, c.StringSlice("keyword"), baseline)

	w := c.App.Writer
	if len(res.Sections) == 0 {
		fmt.Fprintln(w, "No sections selected")
		return nil
	}
	for i, id := range res.Sections {
		if reason, ok := res.Reasons[id]; ok {
			fmt.Fprintf(w, "%d. %s (%s)\n", i+1, id, reason)
			continue
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, id)
	}
	return nil
}

// RecordAction appends one generation outcome.
func RecordAction(c *cli.Context) error {
	scores, err := parseScores(c.StringSlice("score"))
	if err != nil {
		return err
	}
	sections := make([]model.SectionRef, 0, len(c.StringSlice("section")))
	for _, s := range c.StringSlice("section") {
		sections = append(sections, model.SectionRef(s))
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	id, err := svc.Record(c.Context, recorder.Input{
		ArticleID: c.String("article"),
		Keywords:  c.StringSlice("keyword"),
		Sections:  sections,
		Scores:    scores,
	})
	switch {
	case err == nil:
		fmt.Fprintf(c.App.Writer, "recorded %s\n", id)
	case recorder.IsDuplicate(err):
		fmt.Fprintf(c.App.Writer, "duplicate %s, not recorded\n", id)
	default:
		return err
	}
	return nil
}

// RebuildAction replays the event log.
func RebuildAction(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	n, err := svc.Rebuild(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "rebuilt aggregates from %d events\n", n)
	return nil
}

// SeedAction appends a deterministic synthetic history.
func SeedAction(c *cli.Context) error {
	n := c.Int("events")
	if n <= 0 {
		return fmt.Errorf("%w: --events must be positive", ErrUsage)
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Stop()

	recorded := 0
	for _, in := range GenerateSelections(n, c.Int64("seed")) {
		if err := c.Context.Err(); err != nil {
			return err
		}
		_, err := svc.Record(c.Context, in)
		switch {
		case err == nil:
			recorded++
		case recorder.IsDuplicate(err):
		default:
			return fmt.Errorf("seed stopped after %d events: %w", recorded, err)
		}
	}
	fmt.Fprintf(c.App.Writer, "seeded %d events\n", recorded)
	return nil
}

// parseScores reads section=score pairs.
func parseScores(pairs []string) (map[model.SectionRef]float64, error) {
	scores := make(map[model.SectionRef]float64, len(pairs))
	for _, p := range pairs {
		id, raw, ok := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: score %q is not section=score", ErrUsage, p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: score %q: %v", ErrUsage, p, err)
		}
		scores[model.SectionRef(id)] = v
	}
	return scores, nil
}
