package config

import (
	"fmt"
	"strings"

	intconfig "github.com/leapstack-labs/ansfeed/internal/config"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want auto, text or json)", c.LogFormat)
	}
	if c.Pipeline.LookbackQuarters < 1 {
		return fmt.Errorf("pipeline.lookback_quarters must be at least 1")
	}
	if err := intconfig.ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}
