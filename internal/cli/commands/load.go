package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/ansfeed/internal/warehouse"
	"github.com/leapstack-labs/ansfeed/pkg/recordio"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the registry, enriched expenses and aggregates into the target database",
		Long: `Create the operators, expenses and aggregates tables in the configured
target when missing and replace their contents with the files written by enrich.

Supported targets are sqlite (default), duckdb and postgres.`,
		Example: `  # Load into the default SQLite database
  ansfeed load

  # Load into PostgreSQL
  ansfeed load --target postgres --database ans`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			sum, err := runLoad(cmd.Context(), cc, batchSize)
			if err != nil {
				return err
			}
			renderLoadSummary(cmd.OutOrStdout(), cc.Cfg.Target.Type, sum)
			return nil
		},
	}
	cmd.Flags().Int("batch-size", warehouse.DefaultBatchSize, "Rows per INSERT statement")
	return cmd
}

func runLoad(ctx context.Context, cc *CommandContext, batchSize int) (warehouse.Summary, error) {
	enriched, err := recordio.ReadEnrichedFile(cc.Cfg.EnrichedPath())
	if errors.Is(err, os.ErrNotExist) {
		return warehouse.Summary{}, fmt.Errorf("no enriched expenses at %s: run 'ansfeed enrich' first", cc.Cfg.EnrichedPath())
	}
	if err != nil {
		return warehouse.Summary{}, fmt.Errorf("failed to read enriched expenses: %w", err)
	}
	aggs, err := recordio.ReadAggregatesFile(cc.Cfg.AggregatesPath())
	if err != nil {
		return warehouse.Summary{}, fmt.Errorf("failed to read aggregates: %w", err)
	}
	reg, err := cc.LoadRegistry(ctx)
	if err != nil {
		return warehouse.Summary{}, err
	}

	adp, err := cc.Connect(ctx)
	if err != nil {
		return warehouse.Summary{}, err
	}
	defer func() { _ = adp.Close() }()

	wh := warehouse.New(adp, cc.Logger)
	if batchSize > 0 {
		wh = wh.WithBatchSize(batchSize)
	}
	return wh.Load(ctx, warehouse.Dataset{
		Operators:  reg.Entries(),
		Expenses:   enriched,
		Aggregates: aggs,
	})
}
