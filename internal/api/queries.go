package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/ansfeed/pkg/adapter"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// ErrNotFound is returned when an operator does not exist in the target.
var ErrNotFound = errors.New("not found")

// Operator is an operator row as exposed by the API.
type Operator struct {
	RegistrationID   string `json:"registration_id"`
	TaxID            string `json:"tax_id"`
	EntityName       string `json:"entity_name"`
	TradeName        string `json:"trade_name,omitempty"`
	CategoryCode     string `json:"category_code,omitempty"`
	JurisdictionCode string `json:"jurisdiction_code,omitempty"`
	RegistrationDate string `json:"registration_date,omitempty"`
}

// Expense is one quarterly expense of an operator.
type Expense struct {
	Period  string          `json:"period"`
	Year    int             `json:"year"`
	Quarter int             `json:"quarter"`
	Amount  decimal.Decimal `json:"amount"`
}

// OperatorStats summarises one operator's expenses for a year.
type OperatorStats struct {
	RegistrationID   string          `json:"registration_id"`
	TaxID            string          `json:"tax_id"`
	EntityName       string          `json:"entity_name"`
	JurisdictionCode string          `json:"jurisdiction_code,omitempty"`
	Year             int             `json:"year"`
	Total            decimal.Decimal `json:"total"`
	QuarterlyMean    decimal.Decimal `json:"quarterly_mean"`
	StdDev           *float64        `json:"std_dev"`
	Quarters         int             `json:"quarters"`
}

// JurisdictionTotal is the expense total of one jurisdiction.
type JurisdictionTotal struct {
	JurisdictionCode string          `json:"jurisdiction_code"`
	Total            decimal.Decimal `json:"total"`
	Operators        int             `json:"operators"`
}

// Statistics is the market-wide summary.
type Statistics struct {
	Total          decimal.Decimal     `json:"total"`
	Mean           decimal.Decimal     `json:"mean"`
	Operators      int                 `json:"operators"`
	TopOperators   []OperatorStats     `json:"top_operators"`
	ByJurisdiction []JurisdictionTotal `json:"by_jurisdiction"`
}

// ListParams filters and pages the operator listing.
type ListParams struct {
	Page                   int
	Limit                  int
	Query                  string
	IncludeWithoutExpenses bool
}

// Page is a page of operators.
type Page struct {
	Data  []Operator `json:"data"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// Queries reads the warehouse tables through an adapter.
type Queries struct {
	adp adapter.Adapter
}

// NewQueries creates a Queries over a connected adapter.
func NewQueries(adp adapter.Adapter) *Queries {
	return &Queries{adp: adp}
}

// bind renders the n-th placeholder.
func (q *Queries) bind(n int) string {
	return q.adp.Placeholder(n)
}

func (q *Queries) operatorFilter(p ListParams) (string, []any) {
	var clauses []string
	var args []any
	if !p.IncludeWithoutExpenses {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM expenses e WHERE e.registration_id = o.registration_id)")
	}
	if p.Query != "" {
		like := "%" + strings.ToUpper(p.Query) + "%"
		clauses = append(clauses, fmt.Sprintf("(UPPER(o.entity_name) LIKE %s OR o.tax_id LIKE %s)",
			q.bind(len(args)+1), q.bind(len(args)+2)))
		args = append(args, like, "%"+p.Query+"%")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListOperators returns one page of operators ordered by name.
func (q *Queries) ListOperators(ctx context.Context, p ListParams) (Page, error) {
	page := Page{Page: p.Page, Limit: p.Limit, Data: []Operator{}}
	where, args := q.operatorFilter(p)

	rows, err := q.adp.Query(ctx, "SELECT COUNT(*) FROM operators o"+where, args...)
	if err != nil {
		return page, fmt.Errorf("failed to count operators: %w", err)
	}
	if rows.Next() {
		if err := rows.Scan(&page.Total); err != nil {
			_ = rows.Close()
			return page, fmt.Errorf("failed to scan count: %w", err)
		}
	}
	_ = rows.Close()

	//nolint:gosec // where is built from placeholders only
	query := fmt.Sprintf(`SELECT o.registration_id, o.tax_id, o.entity_name, o.trade_name,
	o.category_code, o.jurisdiction_code, o.registration_date
FROM operators o%s
ORDER BY o.entity_name, o.registration_id
LIMIT %s OFFSET %s`, where, q.bind(len(args)+1), q.bind(len(args)+2))
	args = append(args, p.Limit, (p.Page-1)*p.Limit)

	rows, err = q.adp.Query(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("failed to list operators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return page, err
		}
		page.Data = append(page.Data, op)
	}
	return page, rows.Err()
}

// GetOperator returns the operator with the given tax id.
func (q *Queries) GetOperator(ctx context.Context, taxID string) (Operator, error) {
	rows, err := q.adp.Query(ctx, `SELECT registration_id, tax_id, entity_name, trade_name,
	category_code, jurisdiction_code, registration_date
FROM operators WHERE tax_id = `+q.bind(1)+` ORDER BY registration_id LIMIT 1`, taxID)
	if err != nil {
		return Operator{}, fmt.Errorf("failed to get operator: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Operator{}, err
		}
		return Operator{}, ErrNotFound
	}
	return scanOperator(rows)
}

// ListExpenses returns an operator's quarterly expenses, most recent first.
func (q *Queries) ListExpenses(ctx context.Context, registrationID string) ([]Expense, error) {
	rows, err := q.adp.Query(ctx, `SELECT year, quarter, CAST(SUM(amount) AS TEXT)
FROM expenses WHERE registration_id = `+q.bind(1)+`
GROUP BY year, quarter
ORDER BY year DESC, quarter DESC`, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	expenses := []Expense{}
	for rows.Next() {
		var e Expense
		var year, quarter sql.NullInt64
		var amount string
		if err := rows.Scan(&year, &quarter, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Year, e.Quarter = int(year.Int64), int(quarter.Int64)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		e.Period = core.Period{Year: e.Year, Quarter: e.Quarter}.String()
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

const statsColumns = `registration_id, tax_id, entity_name, jurisdiction_code, year,
	CAST(total AS TEXT), CAST(quarterly_mean AS TEXT), std_dev, quarters`

// OperatorStatistics returns the yearly aggregates of one operator.
func (q *Queries) OperatorStatistics(ctx context.Context, registrationID string) ([]OperatorStats, error) {
	rows, err := q.adp.Query(ctx, `SELECT `+statsColumns+`
FROM expense_aggregates WHERE registration_id = `+q.bind(1)+`
ORDER BY year DESC`, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	return collectStats(rows)
}

// Statistics returns the market-wide totals, the top operators and the
// totals per jurisdiction.
func (q *Queries) Statistics(ctx context.Context, top int) (Statistics, error) {
	stats := Statistics{TopOperators: []OperatorStats{}, ByJurisdiction: []JurisdictionTotal{}}

	rows, err := q.adp.Query(ctx, `SELECT CAST(COALESCE(SUM(amount), 0) AS TEXT), COUNT(DISTINCT registration_id) FROM expenses`)
	if err != nil {
		return stats, fmt.Errorf("failed to query totals: %w", err)
	}
	if rows.Next() {
		var total string
		if err := rows.Scan(&total, &stats.Operators); err != nil {
			_ = rows.Close()
			return stats, fmt.Errorf("failed to scan totals: %w", err)
		}
		if stats.Total, err = decimal.NewFromString(total); err != nil {
			_ = rows.Close()
			return stats, fmt.Errorf("invalid total %q: %w", total, err)
		}
	}
	_ = rows.Close()
	if stats.Operators > 0 {
		stats.Mean = stats.Total.Div(decimal.NewFromInt(int64(stats.Operators))).Round(2)
	}

	rows, err = q.adp.Query(ctx, `SELECT `+statsColumns+`
FROM expense_aggregates
ORDER BY total DESC, registration_id
LIMIT `+q.bind(1), top)
	if err != nil {
		return stats, fmt.Errorf("failed to query top operators: %w", err)
	}
	if stats.TopOperators, err = collectStats(rows); err != nil {
		return stats, err
	}

	rows, err = q.adp.Query(ctx, `SELECT COALESCE(o.jurisdiction_code, ''), CAST(SUM(e.amount) AS TEXT), COUNT(DISTINCT e.registration_id)
FROM expenses e LEFT JOIN operators o ON o.registration_id = e.registration_id
GROUP BY COALESCE(o.jurisdiction_code, '')
ORDER BY SUM(e.amount) DESC`)
	if err != nil {
		return stats, fmt.Errorf("failed to query jurisdictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var jt JurisdictionTotal
		var total string
		if err := rows.Scan(&jt.JurisdictionCode, &total, &jt.Operators); err != nil {
			return stats, fmt.Errorf("failed to scan jurisdiction: %w", err)
		}
		if jt.Total, err = decimal.NewFromString(total); err != nil {
			return stats, fmt.Errorf("invalid total %q: %w", total, err)
		}
		stats.ByJurisdiction = append(stats.ByJurisdiction, jt)
	}
	return stats, rows.Err()
}

func collectStats(rows *sql.Rows) ([]OperatorStats, error) {
	defer func() { _ = rows.Close() }()

	out := []OperatorStats{}
	for rows.Next() {
		var s OperatorStats
		var taxID, name, uf sql.NullString
		var year sql.NullInt64
		var total, mean string
		var std sql.NullFloat64
		if err := rows.Scan(&s.RegistrationID, &taxID, &name, &uf, &year, &total, &mean, &std, &s.Quarters); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		s.TaxID, s.EntityName, s.JurisdictionCode = taxID.String, name.String, uf.String
		s.Year = int(year.Int64)
		var err error
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total %q: %w", total, err)
		}
		if s.QuarterlyMean, err = decimal.NewFromString(mean); err != nil {
			return nil, fmt.Errorf("invalid mean %q: %w", mean, err)
		}
		if std.Valid {
			v := std.Float64
			s.StdDev = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanOperator(rows *sql.Rows) (Operator, error) {
	var regID string
	var taxID, name, trade, category, uf, date sql.NullString
	if err := rows.Scan(&regID, &taxID, &name, &trade, &category, &uf, &date); err != nil {
		return Operator{}, fmt.Errorf("failed to scan operator: %w", err)
	}
	return Operator{
		RegistrationID:   regID,
		TaxID:            taxID.String,
		EntityName:       name.String,
		TradeName:        trade.String,
		CategoryCode:     category.String,
		JurisdictionCode: uf.String,
		RegistrationDate: date.String,
	}, nil
}
