package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/ansfeed/internal/cli/config"
	"github.com/leapstack-labs/ansfeed/internal/registry"
	"github.com/leapstack-labs/ansfeed/internal/source"
	"github.com/leapstack-labs/ansfeed/internal/state"
	"github.com/leapstack-labs/ansfeed/pkg/adapter"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext collects the loaded config and logger for cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
	}, nil
}

// Source builds the HTTP source from configuration.
func (c *CommandContext) Source() *source.HTTPSource {
	return source.New(c.Cfg.Source.Config, http.DefaultClient, c.Logger)
}

// OpenState opens the run-history store. The caller closes it.
func (c *CommandContext) OpenState() (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}

// Connect opens the relational target. The caller closes it.
func (c *CommandContext) Connect(ctx context.Context) (adapter.Adapter, error) {
	adp, err := adapter.NewAdapter(c.Cfg.Target.AdapterConfig(), c.Logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, c.Cfg.Target.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s target: %w", c.Cfg.Target.Type, err)
	}
	return adp, nil
}

// LoadRegistry reads the operator registry, downloading it when absent.
func (c *CommandContext) LoadRegistry(ctx context.Context) (*registry.Registry, error) {
	loader := &registry.Loader{
		Dir:     c.Cfg.RegistryDir(),
		URL:     c.Cfg.Source.RegistryURL,
		Fetcher: c.Source(),
		Logger:  c.Logger,
	}
	return loader.Load(ctx)
}
