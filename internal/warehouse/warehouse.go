// Package warehouse loads the curated expense datasets into a relational
// target through a pkg/adapter connection.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/ansfeed/pkg/adapter"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// DefaultBatchSize is the number of rows per multi-row INSERT.
const DefaultBatchSize = 500

// Dataset is everything a load replaces in the target.
type Dataset struct {
	Operators  []core.RegistryEntry
	Expenses   []core.EnrichedRecord
	Aggregates []core.Aggregate
}

// Summary reports the rows written per table.
type Summary struct {
	Operators  int64
	Expenses   int64
	Aggregates int64
}

// Warehouse writes datasets to a connected adapter.
type Warehouse struct {
	adp       adapter.Adapter
	batchSize int
	logger    *slog.Logger
}

// New creates a Warehouse over a connected adapter.
// If logger is nil, a discard logger is used.
func New(adp adapter.Adapter, logger *slog.Logger) *Warehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Warehouse{adp: adp, batchSize: DefaultBatchSize, logger: logger}
}

// WithBatchSize overrides the INSERT batch size.
func (w *Warehouse) WithBatchSize(n int) *Warehouse {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

// EnsureSchema creates the target tables when they don't exist.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := w.adp.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Load replaces the contents of every target table with ds.
func (w *Warehouse) Load(ctx context.Context, ds Dataset) (Summary, error) {
	var sum Summary
	if err := w.EnsureSchema(ctx); err != nil {
		return sum, err
	}

	var err error
	if sum.Operators, err = w.replace(ctx, OperatorsTable, operatorColumns, operatorRows(ds.Operators)); err != nil {
		return sum, err
	}
	if sum.Expenses, err = w.replace(ctx, ExpensesTable, expenseColumns, expenseRows(ds.Expenses)); err != nil {
		return sum, err
	}
	if sum.Aggregates, err = w.replace(ctx, AggregatesTable, aggregateColumns, aggregateRows(ds.Aggregates)); err != nil {
		return sum, err
	}

	w.logger.Info("warehouse loaded",
		slog.String("dialect", w.adp.DialectName()),
		slog.Int64("operators", sum.Operators),
		slog.Int64("expenses", sum.Expenses),
		slog.Int64("aggregates", sum.Aggregates))
	return sum, nil
}

// replace empties table and writes rows, through COPY when the adapter
// supports it and batched INSERTs in a transaction otherwise.
func (w *Warehouse) replace(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if bulk, ok := w.adp.(adapter.BulkLoader); ok {
		if err := w.adp.Exec(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
		return bulk.CopyRows(ctx, table, columns, rows)
	}

	db := w.adp.Handle()
	if db == nil {
		return 0, adapter.ErrNotConnected
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}

	var written int64
	for start := 0; start < len(rows); start += w.batchSize {
		end := min(start+w.batchSize, len(rows))
		n, err := w.insertBatch(ctx, tx, table, columns, rows[start:end])
		if err != nil {
			return written, err
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit %s: %w", table, err)
	}
	w.logger.Debug("table replaced", slog.String("table", table), slog.Int64("rows", written))
	return written, nil
}

func (w *Warehouse) insertBatch(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	query := buildInsert(table, columns, len(rows), w.adp.Placeholder)
	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		args = append(args, row...)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return int64(len(rows)), nil
}

// buildInsert renders a multi-row INSERT with dialect placeholders.
func buildInsert(table string, columns []string, nrows int, placeholder func(int) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	n := 1
	for i := range nrows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func operatorRows(entries []core.RegistryEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.RegistrationID, nullString(e.TaxID), nullString(e.EntityName), nullString(e.TradeName),
			nullString(e.CategoryCode), nullString(e.JurisdictionCode), nullString(e.RegistrationDate),
		})
	}
	return rows
}

func expenseRows(records []core.EnrichedRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.RegistrationID, nullString(r.TaxID), nullInt(r.Year), nullInt(r.Quarter), r.Amount})
	}
	return rows
}

func aggregateRows(aggs []core.Aggregate) [][]any {
	rows := make([][]any, 0, len(aggs))
	for _, a := range aggs {
		var std any
		if a.StdDev != nil {
			std = *a.StdDev
		}
		rows = append(rows, []any{
			a.RegistrationID, nullString(a.TaxID), nullString(a.EntityName),
			nullString(a.CategoryCode), nullString(a.JurisdictionCode),
			nullInt(a.Year), a.Total, a.QuarterlyMean, std, a.Quarters,
		})
	}
	return rows
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt stores an unknown (zero) year or quarter as NULL.
func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
