// Package pipeline orchestrates ingestion: discovery, parallel download,
// parallel extraction and normalization, partitioning and packaging.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/ansfeed/internal/archive"
	"github.com/leapstack-labs/ansfeed/internal/cache"
	"github.com/leapstack-labs/ansfeed/internal/source"
	"github.com/leapstack-labs/ansfeed/internal/state"
	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/partition"
	"github.com/leapstack-labs/ansfeed/pkg/recordio"
	"github.com/leapstack-labs/ansfeed/pkg/table"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// Config holds pipeline collaborators and options.
type Config struct {
	Source  source.Source
	Cache   cache.Dataset
	Outputs Outputs
	Options Options
	// Recorder persists run history (optional).
	Recorder state.Recorder
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Pipeline runs the ingestion workflow.
type Pipeline struct {
	source   source.Source
	cache    cache.Dataset
	outputs  Outputs
	opts     Options
	recorder state.Recorder
	loader   *table.Loader
	logger   *slog.Logger
}

// Result summarises one run.
type Result struct {
	Run *core.Run
	// Halted is set when the run stopped early without persisting anything.
	Halted     bool
	HaltReason string
	CacheHit   bool
	// Discovered and Downloaded count artifacts; both are zero on a cache hit.
	Discovered int
	Downloaded int
	Records    int
	Partitions core.Partitions
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Cache == nil {
		return nil, errors.New("pipeline: cache is required")
	}
	if cfg.Outputs.WorkDir == "" {
		return nil, errors.New("pipeline: work dir is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		source:   cfg.Source,
		cache:    cfg.Cache,
		outputs:  cfg.Outputs,
		opts:     cfg.Options.withDefaults(),
		recorder: cfg.Recorder,
		loader:   table.NewLoader(logger),
		logger:   logger,
	}, nil
}

// Run executes the pipeline. Per-artifact failures are logged and skipped;
// a run with nothing to process halts without touching previous outputs.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	if p.recorder != nil {
		run, err := p.recorder.CreateRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.Run = run
		p.logger.Debug("created run", "run_id", run.ID)
	}

	err := p.run(ctx, res)
	p.complete(ctx, res, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	if p.opts.ForceRefresh {
		p.logger.Info("force refresh: discarding cached dataset")
		if err := p.cache.Invalidate(); err != nil {
			return fmt.Errorf("invalidate cache: %w", err)
		}
	}

	records, ok, err := p.cache.Load()
	if err != nil {
		return fmt.Errorf("load cached dataset: %w", err)
	}

	if ok {
		res.CacheHit = true
		p.logger.Info("using cached consolidated dataset", "records", len(records))
	} else {
		records, err = p.ingest(ctx, res)
		if err != nil || res.Halted {
			return err
		}
		if err := p.cache.Store(records); err != nil {
			return fmt.Errorf("persist consolidated dataset: %w", err)
		}
	}
	res.Records = len(records)

	res.Partitions = partition.Partition(records, partition.Options{
		ValidateIdentifiers: p.opts.ValidateIdentifiers,
		Mode:                p.opts.PartitionMode,
		Validator:           taxid.Validator{Empty: p.opts.EmptyTaxID},
	})
	counts := res.Partitions.Counts()
	p.logger.Info("partitioned dataset",
		slog.Int("valid", counts.Valid),
		slog.Int("negative", counts.Negative),
		slog.Int("zero", counts.Zero),
		slog.Int("invalid_tax_id", counts.InvalidTaxID),
	)

	if err := p.writePartitions(res.Partitions); err != nil {
		return err
	}

	if err := archive.Package(p.outputs.ExpensesDir(), p.outputs.PackagePath()); err != nil {
		return fmt.Errorf("package outputs: %w", err)
	}
	p.logger.Info("packaged outputs", slog.String("path", p.outputs.PackagePath()))
	return nil
}

// ingest runs DISCOVER, DOWNLOAD_ALL, PROCESS_ALL and CONCATENATE.
func (p *Pipeline) ingest(ctx context.Context, res *Result) ([]core.Record, error) {
	if p.source == nil {
		return nil, errors.New("no cached dataset and no source configured")
	}

	artifacts, err := p.discover(ctx)
	if errors.Is(err, source.ErrNoArtifacts) {
		p.halt(res, "discovery found no artifacts")
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("discover artifacts: %w", err)
	}
	res.Discovered = len(artifacts)

	scratch, err := os.MkdirTemp(p.opts.TempDir, "ansfeed-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	downloaded := p.downloadAll(ctx, artifacts, scratch)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Downloaded = len(downloaded)

	records := p.processAll(ctx, downloaded, scratch)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		p.halt(res, "no records produced by any artifact")
		return nil, nil
	}
	p.logger.Info("consolidated dataset", "artifacts", len(downloaded), "records", len(records))
	return records, nil
}

func (p *Pipeline) discover(ctx context.Context) ([]core.Artifact, error) {
	artifacts, err := p.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if n := p.opts.LookbackQuarters; len(artifacts) > n {
		artifacts = artifacts[len(artifacts)-n:]
	}
	if len(artifacts) == 0 {
		return nil, source.ErrNoArtifacts
	}
	for _, a := range artifacts {
		p.logger.Debug("discovered artifact", slog.String("period", a.Period.String()), slog.String("path", a.RemotePath))
	}
	return artifacts, nil
}

func (p *Pipeline) writePartitions(parts core.Partitions) error {
	files := []struct {
		path    string
		records []core.Record
	}{
		{p.outputs.ValidPath(), parts.Valid},
		{p.outputs.NegativePath(), parts.Negative},
		{p.outputs.ZeroPath(), parts.Zero},
		{p.outputs.InvalidTaxIDPath(), parts.InvalidTaxID},
	}
	for _, f := range files {
		if err := recordio.WriteRecordsFile(f.path, f.records); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return nil
}

func (p *Pipeline) halt(res *Result, reason string) {
	res.Halted = true
	res.HaltReason = reason
	p.logger.Warn("run halted", slog.String("reason", reason))
}

func (p *Pipeline) complete(ctx context.Context, res *Result, runErr error) {
	if res.Run == nil {
		return
	}
	run := res.Run
	run.CacheHit = res.CacheHit
	run.Artifacts = res.Downloaded
	run.Records = res.Records
	run.Counts = res.Partitions.Counts()

	switch {
	case runErr != nil:
		run.Status = core.RunStatusFailed
		run.Error = runErr.Error()
		p.logger.Info("run failed", "run_id", run.ID, "error", runErr.Error())
	case res.Halted:
		run.Status = core.RunStatusHalted
		run.Error = res.HaltReason
	default:
		run.Status = core.RunStatusCompleted
		p.logger.Info("run completed", "run_id", run.ID)
	}

	// Record the outcome even if the run's context was cancelled.
	if err := p.recorder.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("failed to record run", "run_id", run.ID, "error", err.Error())
	}
}
