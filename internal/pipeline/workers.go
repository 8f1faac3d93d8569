package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/ansfeed/internal/archive"
	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/normalize"
)

// downloadAll fetches artifacts with at most DownloadWorkers in flight.
// Failed downloads are logged and left out of the result.
func (p *Pipeline) downloadAll(ctx context.Context, artifacts []core.Artifact, scratch string) []core.LocalArtifact {
	dir := filepath.Join(scratch, "downloads")
	results := make([]*core.LocalArtifact, len(artifacts))

	var g errgroup.Group
	g.SetLimit(p.opts.DownloadWorkers)
	for i, a := range artifacts {
		g.Go(func() error {
			err := safely(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				local, err := p.source.Fetch(ctx, a, dir)
				if err != nil {
					return err
				}
				results[i] = &core.LocalArtifact{Artifact: a, LocalPath: local}
				return nil
			})
			if err != nil {
				p.logger.Warn("download failed",
					slog.String("period", a.Period.String()),
					slog.String("path", a.RemotePath),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []core.LocalArtifact
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// processAll extracts and normalizes each archive with at most
// ProcessWorkers in flight and concatenates the results in input order.
func (p *Pipeline) processAll(ctx context.Context, artifacts []core.LocalArtifact, scratch string) []core.Record {
	results := make([][]core.Record, len(artifacts))

	var g errgroup.Group
	g.SetLimit(p.opts.ProcessWorkers)
	for i, a := range artifacts {
		g.Go(func() error {
			recs, err := p.processArtifact(ctx, a, scratch)
			if err != nil {
				p.logger.Warn("processing failed",
					slog.String("period", a.Period.String()),
					slog.String("archive", filepath.Base(a.LocalPath)),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var all []core.Record
	for _, recs := range results {
		all = append(all, recs...)
	}
	return all
}

// processArtifact owns a's archive and its extraction directory; both are
// removed on every exit path.
func (p *Pipeline) processArtifact(ctx context.Context, a core.LocalArtifact, scratch string) (recs []core.Record, err error) {
	defer func() { _ = os.Remove(a.LocalPath) }()

	err = safely(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir, err := os.MkdirTemp(scratch, "extract-")
		if err != nil {
			return err
		}
		defer func() { _ = os.RemoveAll(dir) }()

		files, err := archive.Extract(a.LocalPath, dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			recs = append(recs, p.processFile(f)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("processed archive",
		slog.String("period", a.Period.String()),
		slog.Int("records", len(recs)))
	return recs, nil
}

func (p *Pipeline) processFile(path string) []core.Record {
	name := filepath.Base(path)
	t := p.loader.Load(path)
	if t.Empty() {
		return nil
	}

	if p.opts.ApplyRelevanceFilter {
		if !normalize.IsRelevant(t) {
			p.logger.Debug("skipping irrelevant table", slog.String("file", name))
			return nil
		}
		t = normalize.FilterRelevantRows(t)
	}

	recs, err := normalize.Records(t, name)
	if err != nil {
		p.logger.Debug("skipping table", slog.String("file", name), slog.String("reason", err.Error()))
		return nil
	}
	return recs
}

// safely runs fn, converting a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
