package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/ansfeed/internal/enrich"
	"github.com/leapstack-labs/ansfeed/pkg/recordio"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// enrichSummary reports what the enrich step produced.
type enrichSummary struct {
	Input      int `json:"input"`
	Enriched   int `json:"enriched"`
	Aggregates int `json:"aggregates"`
	Operators  int `json:"operators"`
}

// NewEnrichCommand creates the enrich command.
func NewEnrichCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Join valid expenses with the operator registry and aggregate them",
		Long: `Read the valid partition written by ingest, join every record with the
operator registry by registration id and compute per operator, jurisdiction
and year statistics over quarterly totals.

The registry is downloaded into the work directory the first time it is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			sum, err := runEnrich(cmd.Context(), cc)
			if err != nil {
				return err
			}
			renderEnrichSummary(cmd.OutOrStdout(), sum, cc.Cfg.EnrichedPath(), cc.Cfg.AggregatesPath())
			return nil
		},
	}
	cmd.Flags().String("empty-tax-id", "", "How empty tax ids are judged (invalid|valid)")
	return cmd
}

func runEnrich(ctx context.Context, cc *CommandContext) (enrichSummary, error) {
	var sum enrichSummary

	validPath := cc.Cfg.Outputs().ValidPath()
	records, err := recordio.ReadRecordsFile(validPath)
	if errors.Is(err, os.ErrNotExist) {
		return sum, fmt.Errorf("no valid expenses at %s: run 'ansfeed ingest' first", validPath)
	}
	if err != nil {
		return sum, fmt.Errorf("failed to read valid expenses: %w", err)
	}
	sum.Input = len(records)

	reg, err := cc.LoadRegistry(ctx)
	if err != nil {
		return sum, err
	}
	sum.Operators = reg.Len()

	enriched := enrich.Join(records, reg, taxid.Validator{Empty: cc.Cfg.Pipeline.EmptyTaxID})
	aggs := enrich.Aggregate(enriched)
	sum.Enriched = len(enriched)
	sum.Aggregates = len(aggs)

	if err := recordio.WriteEnrichedFile(cc.Cfg.EnrichedPath(), enriched); err != nil {
		return sum, fmt.Errorf("failed to write enriched expenses: %w", err)
	}
	if err := recordio.WriteAggregatesFile(cc.Cfg.AggregatesPath(), aggs); err != nil {
		return sum, fmt.Errorf("failed to write aggregates: %w", err)
	}

	cc.Logger.Info("enrichment finished",
		"records", sum.Input,
		"enriched", sum.Enriched,
		"aggregates", sum.Aggregates)
	return sum, nil
}
