package core

import "fmt"

// Period identifies a disclosure cycle. The zero value means "unknown".
type Period struct {
	Year    int
	Quarter int
}

// Valid reports whether both year and quarter are known.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Quarter >= 1 && p.Quarter <= 4
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Quarter < o.Quarter
}

func (p Period) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return fmt.Sprintf("%dQ%d", p.Year, p.Quarter)
}

// QuarterOfMonth returns the calendar quarter (1-4) for a month (1-12).
func QuarterOfMonth(month int) int {
	return (month-1)/3 + 1
}
