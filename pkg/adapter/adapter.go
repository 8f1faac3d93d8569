// Package adapter provides the database adapter contract used to load
// curated expense data into a relational target.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from their init functions.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows (e.g., INSERT, CREATE).
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*sql.Rows, error)

	// Handle exposes the underlying connection pool for transactions.
	Handle() *sql.DB

	// DialectName returns the SQL dialect spoken by the target.
	DialectName() string

	// Placeholder formats the n-th (1-based) bind parameter.
	Placeholder(n int) string
}

// BulkLoader is implemented by adapters with a native bulk ingest path.
type BulkLoader interface {
	CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}
