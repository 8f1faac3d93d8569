package warehouse

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ansfeed/internal/testutil"
	"github.com/leapstack-labs/ansfeed/pkg/adapter"
	"github.com/leapstack-labs/ansfeed/pkg/adapters/postgres"
	"github.com/leapstack-labs/ansfeed/pkg/adapters/sqlite"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

func sampleDataset() Dataset {
	std := 1.5
	return Dataset{
		Operators: []core.RegistryEntry{
			{RegistrationID: "123456", TaxID: "11222333000181", EntityName: "ACME SAUDE", CategoryCode: "Medicina de Grupo", JurisdictionCode: "SP"},
			{RegistrationID: "654321", TaxID: "11444777000161", EntityName: "BETA ODONTO"},
		},
		Expenses: []core.EnrichedRecord{
			{Record: core.Record{RegistrationID: "123456", TaxID: "11222333000181", Year: 2024, Quarter: 1, Amount: decimal.RequireFromString("100.50")}},
			{Record: core.Record{RegistrationID: "123456", TaxID: "11222333000181", Year: 2024, Quarter: 2, Amount: decimal.RequireFromString("99.50")}},
			{Record: core.Record{RegistrationID: "654321", TaxID: "11444777000161", Year: 2024, Quarter: 1, Amount: decimal.RequireFromString("10")}},
		},
		Aggregates: []core.Aggregate{
			{RegistrationID: "123456", TaxID: "11222333000181", Year: 2024, Total: decimal.RequireFromString("200"), QuarterlyMean: decimal.RequireFromString("100"), StdDev: &std, Quarters: 2},
			{RegistrationID: "654321", TaxID: "11444777000161", Year: 2024, Total: decimal.RequireFromString("10"), QuarterlyMean: decimal.RequireFromString("10"), Quarters: 1},
		},
	}
}

func setupSQLite(t *testing.T) *sqlite.Adapter {
	t.Helper()
	adp := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func count(t *testing.T, adp adapter.Adapter, table string) int {
	t.Helper()
	var n int
	require.NoError(t, adp.Handle().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestLoad_SQLite(t *testing.T) {
	ctx := context.Background()
	adp := setupSQLite(t)
	wh := New(adp, testutil.NewTestLogger(t))

	sum, err := wh.Load(ctx, sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, Summary{Operators: 2, Expenses: 3, Aggregates: 2}, sum)
	assert.Equal(t, 2, count(t, adp, OperatorsTable))
	assert.Equal(t, 3, count(t, adp, ExpensesTable))
	assert.Equal(t, 2, count(t, adp, AggregatesTable))

	var nulls int
	require.NoError(t, adp.Handle().QueryRow(
		"SELECT COUNT(*) FROM expense_aggregates WHERE std_dev IS NULL").Scan(&nulls))
	assert.Equal(t, 1, nulls, "single-quarter aggregate should have a NULL std_dev")
}

func TestLoad_ReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	adp := setupSQLite(t)
	wh := New(adp, nil)

	_, err := wh.Load(ctx, sampleDataset())
	require.NoError(t, err)

	smaller := sampleDataset()
	smaller.Expenses = smaller.Expenses[:1]
	_, err = wh.Load(ctx, smaller)
	require.NoError(t, err)

	assert.Equal(t, 1, count(t, adp, ExpensesTable))
	assert.Equal(t, 2, count(t, adp, OperatorsTable))
}

func TestLoad_Batches(t *testing.T) {
	ctx := context.Background()
	adp := setupSQLite(t)
	wh := New(adp, nil).WithBatchSize(2)

	ds := sampleDataset()
	for i := range 7 {
		ds.Expenses = append(ds.Expenses, core.EnrichedRecord{Record: core.Record{
			RegistrationID: "123456", Year: 2023, Quarter: i%4 + 1, Amount: decimal.NewFromInt(int64(i)),
		}})
	}

	sum, err := wh.Load(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Expenses)
	assert.Equal(t, 10, count(t, adp, ExpensesTable))
}

func TestLoad_RollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := sqlite.New(nil)
	adp.DB = db

	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM operators").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO operators").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = New(adp, nil).Load(context.Background(), sampleDataset())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to insert into operators")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_NotConnected(t *testing.T) {
	_, err := New(sqlite.New(nil), nil).Load(context.Background(), sampleDataset())
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

type fakeBulk struct {
	*sqlite.Adapter
	copied map[string]int
}

func (f *fakeBulk) CopyRows(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	f.copied[table] += len(rows)
	return int64(len(rows)), nil
}

func TestLoad_UsesBulkLoader(t *testing.T) {
	bulk := &fakeBulk{Adapter: setupSQLite(t), copied: map[string]int{}}

	sum, err := New(bulk, nil).Load(context.Background(), sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{OperatorsTable: 2, ExpensesTable: 3, AggregatesTable: 2}, bulk.copied)
	assert.Equal(t, int64(3), sum.Expenses)
	assert.Equal(t, 0, count(t, bulk, ExpensesTable), "bulk path should bypass INSERT")
}

func TestBuildInsert(t *testing.T) {
	tests := []struct {
		name        string
		placeholder func(int) string
		want        string
	}{
		{
			name:        "question marks",
			placeholder: adapter.QuestionPlaceholder,
			want:        "INSERT INTO t (a, b) VALUES (?, ?), (?, ?)",
		},
		{
			name:        "numbered",
			placeholder: postgres.New(nil).Placeholder,
			want:        "INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildInsert("t", []string{"a", "b"}, 2, tt.placeholder))
		})
	}
}

func TestLoad_UnknownPeriodIsNull(t *testing.T) {
	ctx := context.Background()
	adp := setupSQLite(t)
	wh := New(adp, testutil.NewTestLogger(t))

	ds := sampleDataset()
	ds.Expenses = append(ds.Expenses, core.EnrichedRecord{
		Record: core.Record{RegistrationID: "777777", Amount: decimal.RequireFromString("5")},
	})
	ds.Aggregates = append(ds.Aggregates, core.Aggregate{
		RegistrationID: "777777", Total: decimal.RequireFromString("5"), QuarterlyMean: decimal.RequireFromString("5"), Quarters: 1,
	})
	_, err := wh.Load(ctx, ds)
	require.NoError(t, err)

	var n int
	require.NoError(t, adp.Handle().QueryRow(
		"SELECT COUNT(*) FROM expenses WHERE year IS NULL AND quarter IS NULL").Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, adp.Handle().QueryRow(
		"SELECT COUNT(*) FROM expense_aggregates WHERE year IS NULL").Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, adp.Handle().QueryRow(
		"SELECT COUNT(*) FROM expenses WHERE year = 0").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestExpenseRows_NullPeriod(t *testing.T) {
	rows := expenseRows([]core.EnrichedRecord{
		{Record: core.Record{RegistrationID: "1", Year: 2024, Quarter: 3}},
		{Record: core.Record{RegistrationID: "2"}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 2024, rows[0][2])
	assert.Equal(t, 3, rows[0][3])
	assert.Nil(t, rows[1][1], "empty tax id should be NULL")
	assert.Nil(t, rows[1][2])
	assert.Nil(t, rows[1][3])
}

func TestAggregateRows_NullStdDev(t *testing.T) {
	rows := aggregateRows(sampleDataset().Aggregates)
	require.Len(t, rows, 2)
	assert.InDelta(t, 1.5, rows[0][8], 1e-9)
	assert.Nil(t, rows[1][8])
	assert.Nil(t, rows[1][3], "empty category should be NULL")
}
