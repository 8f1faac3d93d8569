package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	SkipLoad   bool
	JSONOutput bool
	BatchSize  int
}

// stepEvent is one JSON line emitted by run --json.
type stepEvent struct {
	Event     string `json:"event"`
	Step      string `json:"step,omitempty"`
	Status    string `json:"status,omitempty"`
	Detail    any    `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, enrich and load in sequence",
		Long: `Execute the whole workflow: ingest the latest quarterly filings, enrich
the valid expenses with the operator registry and load everything into the
target database.

A run that halts during ingest (nothing discovered or nothing processed)
leaves previous outputs untouched and stops before enrichment.`,
		Example: `  # Full refresh into the default database
  ansfeed run --force-refresh

  # Produce files only
  ansfeed run --skip-load

  # JSON lines for CI/CD integration
  ansfeed run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	addPipelineFlags(cmd)
	cmd.Flags().BoolVar(&opts.SkipLoad, "skip-load", false, "Stop after enrichment")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "Rows per INSERT statement")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	start := time.Now()

	emit := func(ev stepEvent) {
		if opts.JSONOutput {
			emitStepEvent(out, ev)
		}
	}
	fail := func(step string, err error) error {
		emit(stepEvent{Event: "step_complete", Step: step, Status: "failed", Error: err.Error()})
		emit(stepEvent{Event: "run_complete", Status: "failed", ElapsedMS: time.Since(start).Milliseconds()})
		return err
	}

	emit(stepEvent{Event: "step_start", Step: "ingest"})
	res, err := runIngest(ctx, cc)
	if err != nil {
		return fail("ingest", err)
	}
	if res.Halted {
		emit(stepEvent{Event: "step_complete", Step: "ingest", Status: "halted", Detail: res.HaltReason})
		emit(stepEvent{Event: "run_complete", Status: "halted", ElapsedMS: time.Since(start).Milliseconds()})
		if !opts.JSONOutput {
			renderIngestResult(out, res, cc.Cfg.Outputs())
		}
		return nil
	}
	emit(stepEvent{Event: "step_complete", Step: "ingest", Status: "success", Detail: res.Partitions.Counts()})
	if !opts.JSONOutput {
		renderIngestResult(out, res, cc.Cfg.Outputs())
	}

	emit(stepEvent{Event: "step_start", Step: "enrich"})
	esum, err := runEnrich(ctx, cc)
	if err != nil {
		return fail("enrich", err)
	}
	emit(stepEvent{Event: "step_complete", Step: "enrich", Status: "success", Detail: esum})
	if !opts.JSONOutput {
		renderEnrichSummary(out, esum, cc.Cfg.EnrichedPath(), cc.Cfg.AggregatesPath())
	}

	if !opts.SkipLoad {
		emit(stepEvent{Event: "step_start", Step: "load"})
		lsum, err := runLoad(ctx, cc, opts.BatchSize)
		if err != nil {
			return fail("load", err)
		}
		emit(stepEvent{Event: "step_complete", Step: "load", Status: "success", Detail: lsum})
		if !opts.JSONOutput {
			renderLoadSummary(out, cc.Cfg.Target.Type, lsum)
		}
	}

	elapsed := time.Since(start)
	emit(stepEvent{Event: "run_complete", Status: "success", ElapsedMS: elapsed.Milliseconds()})
	if !opts.JSONOutput {
		_, _ = fmt.Fprintf(out, "Completed in %s\n", elapsed.Round(time.Millisecond))
	}
	return nil
}

// emitStepEvent writes a step event as a JSON line.
func emitStepEvent(w io.Writer, event stepEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	_, _ = fmt.Fprintln(w, string(data))
}
