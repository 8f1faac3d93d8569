// Package core defines the shared language of the ansfeed system.
//
// This package contains:
//   - Domain entities (Period, Artifact, Record, RegistryEntry, Aggregate, Run)
//   - Configuration types shared by the CLI and adapters (TargetConfig, AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY the standard library and
// github.com/shopspring/decimal. All other packages depend on core, not the reverse.
package core
