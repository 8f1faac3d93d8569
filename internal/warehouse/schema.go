package warehouse

// Table names in the relational target.
const (
	OperatorsTable  = "operators"
	ExpensesTable   = "expenses"
	AggregatesTable = "expense_aggregates"
)

var (
	operatorColumns = []string{
		"registration_id", "tax_id", "entity_name", "trade_name",
		"category_code", "jurisdiction_code", "registration_date",
	}
	expenseColumns = []string{
		"registration_id", "tax_id", "year", "quarter", "amount",
	}
	aggregateColumns = []string{
		"registration_id", "tax_id", "entity_name", "category_code", "jurisdiction_code",
		"year", "total", "quarterly_mean", "std_dev", "quarters",
	}
)

// schemaStatements create the target tables. The column types are accepted
// by sqlite, duckdb and postgres alike.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS operators (
	registration_id   VARCHAR(16) PRIMARY KEY,
	tax_id            VARCHAR(14),
	entity_name       VARCHAR(255),
	trade_name        VARCHAR(255),
	category_code     VARCHAR(100),
	jurisdiction_code VARCHAR(2),
	registration_date VARCHAR(10)
)`,
	`CREATE TABLE IF NOT EXISTS expenses (
	registration_id VARCHAR(16) NOT NULL,
	tax_id          VARCHAR(14),
	year            INTEGER,
	quarter         INTEGER,
	amount          DECIMAL(18,2) NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_registration ON expenses (registration_id, year, quarter)`,
	`CREATE TABLE IF NOT EXISTS expense_aggregates (
	registration_id   VARCHAR(16) NOT NULL,
	tax_id            VARCHAR(14),
	entity_name       VARCHAR(255),
	category_code     VARCHAR(100),
	jurisdiction_code VARCHAR(2),
	year              INTEGER,
	total             DECIMAL(18,2) NOT NULL,
	quarterly_mean    DECIMAL(18,2) NOT NULL,
	std_dev           DOUBLE PRECISION,
	quarters          INTEGER NOT NULL
)`,
}
