package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/cardsections/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Store.Driver, convey.ShouldEqual, "file")
			convey.So(cfg.Store.Path, convey.ShouldEqual, "data/section_analytics.json")
			convey.So(cfg.Store.LockTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.Optimizer.TrustThreshold, convey.ShouldEqual, 0.7)
			convey.So(cfg.Optimizer.MaxSections, convey.ShouldEqual, 5)
			convey.So(cfg.Optimizer.KeywordLimit, convey.ShouldEqual, 3)
			convey.So(cfg.Optimizer.SectionsPerKeyword, convey.ShouldEqual, 2)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func()
		}{
			{"empty addr", func() { cfg.Addr = " " }},
			{"threshold above one", func() { cfg.Optimizer.TrustThreshold = 1.5 }},
			{"negative threshold", func() { cfg.Optimizer.TrustThreshold = -0.1 }},
			{"zero max sections", func() { cfg.Optimizer.MaxSections = 0 }},
			{"zero keyword limit", func() { cfg.Optimizer.KeywordLimit = 0 }},
			{"zero per keyword", func() { cfg.Optimizer.SectionsPerKeyword = -1 }},
			{"zero top n", func() { cfg.MaxTopN = 0 }},
			{"zero dedupe", func() { cfg.DedupeSize = 0 }},
			{"zero lock timeout", func() { cfg.Store.LockTimeoutMS = 0 }},
			{"unknown driver", func() { cfg.Store.Driver = "redis" }},
			{"file without path", func() { cfg.Store.Path = "" }},
			{"unknown log format", func() { cfg.LogFormat = "xml" }},
		}
		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				tc.mutate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the memory driver has no path", func() {
			cfg.Store.Driver = "memory"
			cfg.Store.Path = ""

			convey.Convey("Then it is valid", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
