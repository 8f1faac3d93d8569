package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusHalted    RunStatus = "halted"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded execution of the ingestion pipeline.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      RunStatus
	CacheHit    bool
	Artifacts   int
	Records     int
	Counts      PartitionCounts
	Error       string
}

// PartitionCounts holds bucket sizes of a partitioned dataset.
type PartitionCounts struct {
	Valid        int
	Negative     int
	Zero         int
	InvalidTaxID int
}

// Counts returns the bucket sizes of p.
func (p Partitions) Counts() PartitionCounts {
	return PartitionCounts{
		Valid:        len(p.Valid),
		Negative:     len(p.Negative),
		Zero:         len(p.Zero),
		InvalidTaxID: len(p.InvalidTaxID),
	}
}
