package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/ansfeed/internal/pipeline"
	"github.com/leapstack-labs/ansfeed/internal/warehouse"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderSummary prints a two-column key/value table.
func renderSummary(w io.Writer, title string, rows []table.Row) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendRows(rows)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func renderIngestResult(w io.Writer, res *pipeline.Result, out pipeline.Outputs) {
	if res.Halted {
		_, _ = fmt.Fprintln(w, newStyles(w).Warning.Render("Run halted: "+res.HaltReason))
		return
	}
	counts := res.Partitions.Counts()
	source := "downloaded"
	if res.CacheHit {
		source = "cache"
	}
	renderSummary(w, "Ingest", []table.Row{
		{"source", source},
		{"artifacts discovered", res.Discovered},
		{"artifacts downloaded", res.Downloaded},
		{"records", res.Records},
		{"valid", counts.Valid},
		{"negative amount", counts.Negative},
		{"zero amount", counts.Zero},
		{"invalid tax id", counts.InvalidTaxID},
		{"package", out.PackagePath()},
	})
}

func renderEnrichSummary(w io.Writer, sum enrichSummary, enrichedPath, aggregatesPath string) {
	renderSummary(w, "Enrich", []table.Row{
		{"registry operators", sum.Operators},
		{"valid records", sum.Input},
		{"enriched records", sum.Enriched},
		{"aggregates", sum.Aggregates},
		{"enriched file", enrichedPath},
		{"aggregates file", aggregatesPath},
	})
}

func renderLoadSummary(w io.Writer, target string, sum warehouse.Summary) {
	renderSummary(w, "Load", []table.Row{
		{"target", target},
		{"operators", sum.Operators},
		{"expenses", sum.Expenses},
		{"aggregates", sum.Aggregates},
	})
}

func renderRuns(w io.Writer, runs []*core.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(no runs)")
		return
	}

	st := newStyles(w)
	t := newTable(w)
	t.AppendHeader(table.Row{"id", "status", "started", "duration", "cache", "artifacts", "records", "valid", "error"})
	for _, r := range runs {
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			shortID(r.ID), st.status(r.Status), r.StartedAt.Local().Format(time.DateTime), duration,
			r.CacheHit, r.Artifacts, r.Records, r.Counts.Valid, r.Error,
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d runs)\n", len(runs))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
