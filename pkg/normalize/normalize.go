// Package normalize turns loaded tables into normalized expense records.
//
// Columns are located heuristically by header name (see ColumnRules), values
// are coerced from the regulator's locale (period thousands separator, comma
// decimal separator) and the reporting period is taken from a date column or,
// failing that, from the source file name.
package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/period"
	"github.com/leapstack-labs/ansfeed/pkg/table"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// ErrMissingColumns is returned when a table lacks a registration id or
// amount column.
var ErrMissingColumns = errors.New("required columns not found")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
	"01/2006",
}

// Normalize extracts records from t. The filename supplies the fallback
// period. Tables without the required columns yield nil.
func Normalize(t *table.Table, filename string) []core.Record {
	recs, _ := Records(t, filename)
	return recs
}

// Records is Normalize with the reason for a dropped table surfaced.
// Rows with an empty registration id or an unparsable amount are skipped.
func Records(t *table.Table, filename string) ([]core.Record, error) {
	if t.Empty() {
		return nil, nil
	}
	cols := Resolve(t.Columns)
	if !cols.Complete() {
		return nil, ErrMissingColumns
	}
	fallback, _ := period.Extract(filename)

	out := make([]core.Record, 0, t.Len())
	for i := range t.Rows {
		reg := strings.TrimSpace(t.Value(i, cols.RegistrationID))
		if reg == "" {
			continue
		}
		amount, ok := ParseAmount(t.Value(i, cols.Amount))
		if !ok {
			continue
		}

		p := fallback
		if d, ok := ParseDate(t.Value(i, cols.Date)); ok {
			p = core.Period{Year: d.Year(), Quarter: core.QuarterOfMonth(int(d.Month()))}
		}

		out = append(out, core.Record{
			RegistrationID: reg,
			TaxID:          taxid.Digits(t.Value(i, cols.TaxID)),
			EntityName:     strings.TrimSpace(t.Value(i, cols.EntityName)),
			Quarter:        p.Quarter,
			Year:           p.Year,
			Amount:         amount,
		})
	}
	return out, nil
}

// ParseAmount parses a locale-formatted number such as "1.234,56".
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseDate parses the date formats seen in regulator files.
// Slash-separated dates are read day first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
