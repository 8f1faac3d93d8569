// Package period infers reporting periods from source file names.
package period

import (
	"regexp"
	"strconv"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// quarter-then-year ("1T2023", "1-2023") or year-then-quarter ("2023_1", "2023 3T").
var filenamePattern = regexp.MustCompile(
	`(?i)(?:([1-4])\s*T?[-_]*\s*(\d{4})|(\d{4})[-_]*\s*([1-4])\s*T?)`,
)

// Extract returns the (year, quarter) named in filename. The leftmost match
// wins; ok is false when neither form appears.
func Extract(filename string) (p core.Period, ok bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return core.Period{}, false
	}
	quarter, year := m[1], m[2]
	if quarter == "" {
		year, quarter = m[3], m[4]
	}
	p.Year, _ = strconv.Atoi(year)
	p.Quarter, _ = strconv.Atoi(quarter)
	return p, true
}
