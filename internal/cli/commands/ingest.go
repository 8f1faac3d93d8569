package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/ansfeed/internal/pipeline"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download, consolidate and partition quarterly expense filings",
		Long: `Discover the most recent quarterly filings on the open-data server,
download and extract them concurrently, normalize every table into the
consolidated dataset and split it into valid, negative amount, zero amount
and invalid tax id partitions.

The consolidated dataset is cached under the work directory; later runs reuse
it without touching the network until --force-refresh is given.`,
		Example: `  # Ingest the last three quarters
  ansfeed ingest

  # Re-download everything and keep overlapping partitions
  ansfeed ingest --force-refresh --partition-mode overlapping`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			res, err := runIngest(cmd.Context(), cc)
			if err != nil {
				return err
			}
			renderIngestResult(cmd.OutOrStdout(), res, cc.Cfg.Outputs())
			return nil
		},
	}

	addPipelineFlags(cmd)
	return cmd
}

// addPipelineFlags registers the flags that override pipeline.* settings.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("force-refresh", false, "Discard the cached consolidated dataset")
	cmd.Flags().Int("lookback", 0, "Number of most recent quarters to process")
	cmd.Flags().Bool("relevance-filter", true, "Keep only claims tables and rows")
	cmd.Flags().Bool("validate-identifiers", false, "Check tax id check digits when partitioning")
	cmd.Flags().String("partition-mode", "", "Partition mode (exclusive|overlapping)")
	cmd.Flags().String("empty-tax-id", "", "How empty tax ids are judged (invalid|valid)")
	cmd.Flags().Int("download-workers", 0, "Concurrent artifact downloads")
	cmd.Flags().Int("process-workers", 0, "Concurrent artifact processors")
	cmd.Flags().Int("per-year", 3, "Keep only the last N artifacts of each year (0 keeps all)")

	_ = cmd.RegisterFlagCompletionFunc("partition-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"exclusive", "overlapping"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("empty-tax-id", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"invalid", "valid"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runIngest(ctx context.Context, cc *CommandContext) (*pipeline.Result, error) {
	store, err := cc.OpenState()
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	p, err := pipeline.New(pipeline.Config{
		Source:   cc.Source(),
		Cache:    cc.Cfg.Cache(cc.Logger),
		Outputs:  cc.Cfg.Outputs(),
		Options:  cc.Cfg.Pipeline,
		Recorder: store,
		Logger:   cc.Logger,
	})
	if err != nil {
		return nil, err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("ingest failed: %w", err)
	}
	return res, nil
}
