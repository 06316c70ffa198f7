// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/cardsections/internal/adapters/repository"
	"github.com/okian/cardsections/internal/domain/optimizer"
	"github.com/okian/cardsections/internal/domain/reliability"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	Store     StoreConfig     `koanf:"store"`
	Optimizer OptimizerConfig `koanf:"optimizer"`

	// MaxTopN caps GET /keywords/{keyword}/sections?top_n.
	MaxTopN int `koanf:"max_top_n"`

	// DedupeSize sets the size of the article id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// StoreConfig selects and locates the analytics store.
type StoreConfig struct {
	// Driver is one of file, sqlite, memory.
	Driver string `koanf:"driver"`

	// Path is the JSON document (file) or database (sqlite) location.
	Path string `koanf:"path"`

	// LockTimeoutMS bounds how long a writer waits for the store lock.
	LockTimeoutMS int `koanf:"lock_timeout_ms"`
}

// LockTimeout returns LockTimeoutMS as a duration.
func (s StoreConfig) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutMS) * time.Millisecond
}

// OptimizerConfig tunes the section optimizer.
type OptimizerConfig struct {
	TrustThreshold     float64 `koanf:"trust_threshold"`
	MaxSections        int     `koanf:"max_sections"`
	KeywordLimit       int     `koanf:"keyword_limit"`
	SectionsPerKeyword int     `koanf:"sections_per_keyword"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Store: StoreConfig{
			Driver:        repository.DriverFile,
			Path:          "data/section_analytics.json",
			LockTimeoutMS: 2000,
		},
		Optimizer: OptimizerConfig{
			TrustThreshold:     reliability.DefaultTrustThreshold,
			MaxSections:        optimizer.DefaultMaxSections,
			KeywordLimit:       optimizer.DefaultKeywordLimit,
			SectionsPerKeyword: optimizer.DefaultSectionsPerKeyword,
		},
		MaxTopN:    50,
		DedupeSize: 50_000,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.Optimizer.TrustThreshold < 0 || c.Optimizer.TrustThreshold > 1:
		return invalid("optimizer.trust_threshold must be within [0,1], got %v", c.Optimizer.TrustThreshold)
	case c.Optimizer.MaxSections <= 0:
		return invalid("optimizer.max_sections must be positive")
	case c.Optimizer.KeywordLimit <= 0:
		return invalid("optimizer.keyword_limit must be positive")
	case c.Optimizer.SectionsPerKeyword <= 0:
		return invalid("optimizer.sections_per_keyword must be positive")
	case c.MaxTopN <= 0:
		return invalid("max_top_n must be positive")
	case c.DedupeSize <= 0:
		return invalid("dedupe_size must be positive")
	case c.Store.LockTimeoutMS <= 0:
		return invalid("store.lock_timeout_ms must be positive")
	}

	switch strings.ToLower(c.Store.Driver) {
	case repository.DriverFile, repository.DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return invalid("store.path must not be empty for driver %q", c.Store.Driver)
		}
	case repository.DriverMemory:
	default:
		return invalid("unknown store.driver %q", c.Store.Driver)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
