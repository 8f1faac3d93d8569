// Package config provides configuration management for the ansfeed CLI.
//
// Settings are layered with koanf: built-in defaults, then ansfeed.yaml,
// then ANSFEED_ environment variables, then explicitly set flags.
package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/ansfeed/internal/cache"
	"github.com/leapstack-labs/ansfeed/internal/pipeline"
	"github.com/leapstack-labs/ansfeed/internal/source"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// SourceConfig configures where artifacts and the registry come from.
type SourceConfig struct {
	source.Config `koanf:",squash"`
	RegistryURL   string `koanf:"registry_url"`
}

// ServerConfig configures the query API.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// Config holds all CLI configuration options.
type Config struct {
	WorkDir   string           `koanf:"work_dir"`
	StatePath string           `koanf:"state_path"`
	LogLevel  string           `koanf:"log_level"`
	LogFormat string           `koanf:"log_format"`
	Source    SourceConfig     `koanf:"source"`
	Pipeline  pipeline.Options `koanf:"pipeline"`
	Target    *TargetConfig    `koanf:"target"`
	Server    ServerConfig     `koanf:"server"`
}

// Outputs returns the output locations under the work directory.
func (c *Config) Outputs() pipeline.Outputs {
	return pipeline.Outputs{WorkDir: c.WorkDir}
}

// RegistryDir is where the operator registry file is kept.
func (c *Config) RegistryDir() string {
	return filepath.Join(c.WorkDir, "registry")
}

// EnrichedPath is the enriched expense dataset written by the enrich step.
func (c *Config) EnrichedPath() string {
	return filepath.Join(c.WorkDir, "enriched", "enriched_expenses.csv")
}

// AggregatesPath is the aggregated dataset written by the enrich step.
func (c *Config) AggregatesPath() string {
	return filepath.Join(c.WorkDir, "enriched", "aggregated_expenses.csv")
}

// Cache returns the consolidated dataset cache.
func (c *Config) Cache(logger *slog.Logger) *cache.File {
	return cache.NewFile(c.Outputs().ConsolidatedPath(), logger)
}
