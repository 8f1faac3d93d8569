// Package state records pipeline run history in SQLite.
package state

import (
	"context"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// Recorder tracks the lifecycle of pipeline runs.
type Recorder interface {
	CreateRun(ctx context.Context) (*core.Run, error)
	CompleteRun(ctx context.Context, run *core.Run) error
}

// Store is a Recorder that can also be queried.
type Store interface {
	Recorder
	GetRun(ctx context.Context, id string) (*core.Run, error)
	GetLatestRun(ctx context.Context) (*core.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
