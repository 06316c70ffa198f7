// Package ctl implements sectionctl, the operator CLI that reads and
// maintains a section analytics store directly, without the HTTP server.
package ctl

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/okian/cardsections/internal/adapters/repository"
	service "github.com/okian/cardsections/internal/app"
	"github.com/okian/cardsections/internal/config"
	"github.com/okian/cardsections/pkg/logger"
)

// NewApp builds the sectionctl command tree.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "sectionctl",
		Usage: "inspect and maintain card section analytics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{config.EnvConfig},
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "store driver: file, sqlite or memory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "store file or database path (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "print the reliability of every known section",
				Action: StatsAction,
			},
			{
				Name:  "best",
				Usage: "print the sections that score best with a keyword",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Required: true},
					&cli.IntFlag{Name: "top", Aliases: []string{"n"}, Value: 2},
				},
				Action: BestAction,
			},
			{
				Name:  "optimize",
				Usage: "optimize a baseline section list",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "keyword", Aliases: []string{"k"}},
					&cli.StringSliceFlag{Name: "section", Aliases: []string{"s"}},
				},
				Action: OptimizeAction,
			},
			{
				Name:  "record",
				Usage: "record a generation outcome",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "article", Aliases: []string{"a"}, Usage: "article id, generated when empty"},
					&cli.StringSliceFlag{Name: "keyword", Aliases: []string{"k"}},
					&cli.StringSliceFlag{Name: "section", Aliases: []string{"s"}},
					&cli.StringSliceFlag{Name: "score", Usage: "section=score, repeatable"},
				},
				Action: RecordAction,
			},
			{
				Name:   "rebuild",
				Usage:  "replay the event log into fresh aggregates",
				Action: RebuildAction,
			},
			{
				Name:  "seed",
				Usage: "append a synthetic history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "events", Aliases: []string{"n"}, Value: 200},
					&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed; equal seeds give equal histories"},
				},
				Action: SeedAction,
			},
		},
	}
}

// openService loads configuration, applies flag overrides and starts a
// service over the configured store. Callers must Stop it.
func openService(c *cli.Context) (*service.Service, error) {
	cfg, err := config.LoadFile(c.Context, c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("driver") {
		cfg.Store.Driver = strings.ToLower(c.String("driver"))
	}
	if c.IsSet("path") {
		cfg.Store.Path = c.String("path")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.Default().Named("sectionctl")
	store, err := repository.New(cfg.Store.Driver, cfg.Store.Path,
		repository.WithLockTimeout(cfg.Store.LockTimeout()),
		repository.WithLogger(log.Named("store")),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithTrustThreshold(cfg.Optimizer.TrustThreshold),
		service.WithMaxSections(cfg.Optimizer.MaxSections),
		service.WithKeywordLimit(cfg.Optimizer.KeywordLimit),
		service.WithSectionsPerKeyword(cfg.Optimizer.SectionsPerKeyword),
		service.WithMaxTopN(cfg.MaxTopN),
		service.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(c.Context); err != nil {
		return nil, err
	}
	return svc, nil
}
