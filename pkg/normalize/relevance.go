package normalize

import (
	"regexp"

	"github.com/leapstack-labs/ansfeed/pkg/table"
)

// claimsPattern matches descriptions of expenditures on claims/events.
var claimsPattern = regexp.MustCompile(`(?i)despesas.*(?:eventos|sinistros)`)

// DescriptionColumn returns the index of the free-text description column:
// a "DESCRICAO" header first, then any header containing "descr", both
// case-insensitive. It returns -1 when there is none.
func DescriptionColumn(t *table.Table) int {
	if t == nil {
		return -1
	}
	if i := t.Column("DESCRICAO"); i >= 0 {
		return i
	}
	return find(t.Columns, []string{"descr"})
}

// IsClaimsDescription reports whether s describes claims expenditures.
func IsClaimsDescription(s string) bool {
	return claimsPattern.MatchString(s)
}

// IsRelevant reports whether any description cell of t names claims
// expenditures. Tables without a description column are not relevant.
func IsRelevant(t *table.Table) bool {
	col := DescriptionColumn(t)
	if col < 0 {
		return false
	}
	for i := range t.Rows {
		if IsClaimsDescription(t.Value(i, col)) {
			return true
		}
	}
	return false
}

// FilterRelevantRows keeps only rows whose description names claims
// expenditures. A table without a description column is returned unchanged.
func FilterRelevantRows(t *table.Table) *table.Table {
	col := DescriptionColumn(t)
	if col < 0 {
		return t
	}
	return t.Filter(func(row []string) bool {
		return col < len(row) && IsClaimsDescription(row[col])
	})
}
