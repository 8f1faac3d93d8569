package pipeline

import (
	"runtime"

	"github.com/leapstack-labs/ansfeed/pkg/partition"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// Options is the single configuration surface of the ingestion pipeline.
type Options struct {
	// ApplyRelevanceFilter skips tables without a claims description and
	// keeps only claims rows of the tables that have one.
	ApplyRelevanceFilter bool `koanf:"apply_relevance_filter"`
	// ValidateIdentifiers checks tax id check digits during partitioning.
	// Regulator accounting files carry no tax id column, so it is off by
	// default and ids are checked after the registry join instead.
	ValidateIdentifiers bool `koanf:"validate_identifiers"`
	// LookbackQuarters is the number of most recent artifacts processed.
	LookbackQuarters int `koanf:"lookback_quarters"`
	// DownloadWorkers bounds concurrent downloads.
	DownloadWorkers int `koanf:"download_workers"`
	// ProcessWorkers bounds concurrent archive processing.
	ProcessWorkers int               `koanf:"process_workers"`
	PartitionMode  partition.Mode    `koanf:"partition_mode"`
	EmptyTaxID     taxid.EmptyPolicy `koanf:"empty_tax_id"`
	// ForceRefresh discards the cached consolidated dataset before running.
	ForceRefresh bool `koanf:"force_refresh"`
	// TempDir is the parent of per-run scratch directories. Empty means os.TempDir.
	TempDir string `koanf:"temp_dir"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ApplyRelevanceFilter: true,
		ValidateIdentifiers:  false,
		LookbackQuarters:     3,
		DownloadWorkers:      5,
		ProcessWorkers:       runtime.NumCPU(),
		PartitionMode:        partition.ModeExclusive,
		EmptyTaxID:           taxid.EmptyInvalid,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LookbackQuarters <= 0 {
		o.LookbackQuarters = d.LookbackQuarters
	}
	if o.DownloadWorkers <= 0 {
		o.DownloadWorkers = d.DownloadWorkers
	}
	if o.ProcessWorkers <= 0 {
		o.ProcessWorkers = d.ProcessWorkers
	}
	if o.PartitionMode == "" {
		o.PartitionMode = d.PartitionMode
	}
	return o
}
