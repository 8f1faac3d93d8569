// Package config provides the configuration defaults and target rules shared
// by the CLI and the API server.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/ansfeed/pkg/adapter"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "ansfeed.yaml"
	ConfigFileNameAlt = "ansfeed.yml"
)

// Default configuration values.
const (
	DefaultWorkDir    = "data"
	DefaultStatePath  = ".ansfeed/state.db"
	DefaultTargetType = "sqlite"
	DefaultDatabase   = "data/ans.db"
	DefaultServerAddr = ":8080"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "auto"
)

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "postgres":
		return "public"
	case "duckdb", "sqlite":
		return "main"
	}
	return ""
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)

	// Postgres resolves unqualified names through search_path, so only set
	// the schema when one was configured.
	if t.Schema == "" && t.Type != "postgres" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Host == "" {
			t.Host = "localhost"
		}
	case "sqlite":
		if t.Database == "" {
			t.Database = DefaultDatabase
		}
	}
}

// ValidateTarget checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target is required")
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	if t.Type == "postgres" && t.Database == "" {
		return fmt.Errorf("target.database is required for postgres")
	}
	return nil
}
