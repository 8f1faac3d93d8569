package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ansfeed/internal/source"
	"github.com/leapstack-labs/ansfeed/pkg/partition"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ansfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.WorkDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, source.DefaultBaseURL, cfg.Source.BaseURL)
	assert.Equal(t, source.DefaultRegistryURL, cfg.Source.RegistryURL)
	assert.Equal(t, 60*time.Second, cfg.Source.ListTimeout)
	assert.Equal(t, 120*time.Second, cfg.Source.DownloadTimeout)
	assert.Equal(t, 3, cfg.Source.PerYear)

	assert.True(t, cfg.Pipeline.ApplyRelevanceFilter)
	assert.False(t, cfg.Pipeline.ValidateIdentifiers, "regulator files carry no tax id column")
	assert.Equal(t, 3, cfg.Pipeline.LookbackQuarters)
	assert.Equal(t, 5, cfg.Pipeline.DownloadWorkers)
	assert.Equal(t, partition.ModeExclusive, cfg.Pipeline.PartitionMode)
	assert.Equal(t, taxid.EmptyInvalid, cfg.Pipeline.EmptyTaxID)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, "data/ans.db", cfg.Target.Database)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)

	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `
work_dir: out
log_level: debug
source:
  base_url: http://mirror.local/ans
  download_timeout: 5m
  per_year: 2
pipeline:
  apply_relevance_filter: false
  lookback_quarters: 8
  empty_tax_id: valid
  partition_mode: overlapping
target:
  type: duckdb
  database: ans.duckdb
  options:
    threads: "2"
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "out"), cfg.WorkDir, "relative paths resolve against the config file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://mirror.local/ans", cfg.Source.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Source.DownloadTimeout)
	assert.Equal(t, 2, cfg.Source.PerYear)

	assert.False(t, cfg.Pipeline.ApplyRelevanceFilter)
	assert.False(t, cfg.Pipeline.ValidateIdentifiers, "unset keys keep their defaults")
	assert.Equal(t, 8, cfg.Pipeline.LookbackQuarters)
	assert.Equal(t, taxid.EmptyValid, cfg.Pipeline.EmptyTaxID)
	assert.Equal(t, partition.ModeOverlapping, cfg.Pipeline.PartitionMode)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, filepath.Join(dir, "ans.duckdb"), cfg.Target.Database)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, map[string]string{"threads": "2"}, cfg.Target.Options)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "pipeline:\n  lookback_quarters: 8\n")
	t.Setenv("ANSFEED_PIPELINE__LOOKBACK_QUARTERS", "4")
	t.Setenv("ANSFEED_PIPELINE__VALIDATE_IDENTIFIERS", "true")
	t.Setenv("ANSFEED_LOG_FORMAT", "json")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.LookbackQuarters)
	assert.True(t, cfg.Pipeline.ValidateIdentifiers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	t.Setenv("ANSFEED_WORK_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("work-dir", "", "")
	flags.String("state", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--work-dir", "/from/flag", "--state", "/tmp/state.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.WorkDir)
	assert.Equal(t, "/tmp/state.db", cfg.StatePath)
	assert.Equal(t, "info", cfg.LogLevel, "unchanged flags must not override")
}

func TestLoadConfig_ExpandsTargetSecrets(t *testing.T) {
	ResetConfig()
	t.Setenv("ANS_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
target:
  type: postgres
  database: ans
  user: loader
  password: ${ANS_DB_PASSWORD}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, "ans", cfg.Target.Database, "postgres database names are not paths")
	assert.Equal(t, 5432, cfg.Target.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown target", "target:\n  type: oracle\n", "unknown adapter type"},
		{"bad log level", "log_level: loud\n", "invalid log_level"},
		{"bad log format", "log_format: xml\n", "invalid log_format"},
		{"bad partition mode", "pipeline:\n  partition_mode: random\n", "unable to decode config"},
		{"bad empty policy", "pipeline:\n  empty_tax_id: maybe\n", "unable to decode config"},
		{"zero lookback", "pipeline:\n  lookback_quarters: 0\n", "lookback_quarters"},
		{"postgres without database", "target:\n  type: postgres\n", "target.database is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "work_dir", envKey("ANSFEED_WORK_DIR"))
	assert.Equal(t, "source.base_url", envKey("ANSFEED_SOURCE__BASE_URL"))
	assert.Equal(t, "target.options.sslmode", envKey("ANSFEED_TARGET__OPTIONS__SSLMODE"))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ANS_TEST_HOST", "db.internal")

	assert.Equal(t, "db.internal:5432", expandEnvVars("${ANS_TEST_HOST}:5432"))
	assert.Equal(t, "${ANS_TEST_UNSET}", expandEnvVars("${ANS_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "missing logger falls back to discard")

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestLoadConfig_PipelineFlags(t *testing.T) {
	ResetConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("force-refresh", false, "")
	flags.Int("lookback", 0, "")
	flags.Bool("relevance-filter", true, "")
	flags.String("partition-mode", "", "")
	flags.String("empty-tax-id", "", "")
	flags.Int("download-workers", 0, "")
	flags.Int("per-year", 0, "")
	flags.String("target", "", "")
	require.NoError(t, flags.Parse([]string{
		"--force-refresh",
		"--lookback", "6",
		"--relevance-filter=false",
		"--partition-mode", "overlapping",
		"--empty-tax-id", "valid",
		"--per-year", "2",
		"--target", "duckdb",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.True(t, cfg.Pipeline.ForceRefresh)
	assert.Equal(t, 6, cfg.Pipeline.LookbackQuarters)
	assert.False(t, cfg.Pipeline.ApplyRelevanceFilter)
	assert.Equal(t, partition.ModeOverlapping, cfg.Pipeline.PartitionMode)
	assert.Equal(t, taxid.EmptyValid, cfg.Pipeline.EmptyTaxID)
	assert.Equal(t, 5, cfg.Pipeline.DownloadWorkers, "unchanged flag keeps default")
	assert.Equal(t, 2, cfg.Source.PerYear)
	assert.Equal(t, "duckdb", cfg.Target.Type)
}
