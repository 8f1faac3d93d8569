package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	intconfig "github.com/leapstack-labs/ansfeed/internal/config"
	"github.com/leapstack-labs/ansfeed/internal/source"
)

type starterSource struct {
	BaseURL     string `yaml:"base_url"`
	RegistryURL string `yaml:"registry_url"`
	PerYear     int    `yaml:"per_year"`
}

type starterPipeline struct {
	LookbackQuarters     int    `yaml:"lookback_quarters"`
	ApplyRelevanceFilter bool   `yaml:"apply_relevance_filter"`
	ValidateIdentifiers  bool   `yaml:"validate_identifiers"`
	PartitionMode        string `yaml:"partition_mode"`
	EmptyTaxID           string `yaml:"empty_tax_id"`
	DownloadWorkers      int    `yaml:"download_workers"`
}

type starterTarget struct {
	Type     string `yaml:"type"`
	Database string `yaml:"database"`
}

type starterServer struct {
	Addr string `yaml:"addr"`
}

// starterConfig is the ansfeed.yaml written by init.
type starterConfig struct {
	WorkDir   string          `yaml:"work_dir"`
	StatePath string          `yaml:"state_path"`
	LogLevel  string          `yaml:"log_level"`
	Source    starterSource   `yaml:"source"`
	Pipeline  starterPipeline `yaml:"pipeline"`
	Target    starterTarget   `yaml:"target"`
	Server    starterServer   `yaml:"server"`
}

func defaultStarterConfig() starterConfig {
	return starterConfig{
		WorkDir:   intconfig.DefaultWorkDir,
		StatePath: intconfig.DefaultStatePath,
		LogLevel:  intconfig.DefaultLogLevel,
		Source: starterSource{
			BaseURL:     source.DefaultBaseURL,
			RegistryURL: source.DefaultRegistryURL,
			PerYear:     3,
		},
		Pipeline: starterPipeline{
			LookbackQuarters:     3,
			ApplyRelevanceFilter: true,
			ValidateIdentifiers:  false,
			PartitionMode:        "exclusive",
			EmptyTaxID:           "invalid",
			DownloadWorkers:      5,
		},
		Target: starterTarget{
			Type:     intconfig.DefaultTargetType,
			Database: intconfig.DefaultDatabase,
		},
		Server: starterServer{Addr: intconfig.DefaultServerAddr},
	}
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter ansfeed.yaml",
		Long: `Write an ansfeed.yaml with every setting at its default value and create
the work directory it points to.

Every value can later be overridden by ANSFEED_ environment variables
(ANSFEED_TARGET__TYPE=postgres) or command line flags.`,
		Example: `  # Initialize in current directory
  ansfeed init

  # Initialize in a new directory
  ansfeed init ans-data

  # Force overwrite existing config
  ansfeed init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path, err := runInit(dir, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Created %s\n\n", path)
			_, _ = fmt.Fprintln(out, "Next steps:")
			_, _ = fmt.Fprintln(out, "  1. Review the target section of ansfeed.yaml")
			_, _ = fmt.Fprintln(out, "  2. Run 'ansfeed run' to ingest, enrich and load")
			_, _ = fmt.Fprintln(out, "  3. Run 'ansfeed serve' to query the loaded data")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

func runInit(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return "", fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	cfg := defaultStarterConfig()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, cfg.WorkDir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	return configPath, nil
}
