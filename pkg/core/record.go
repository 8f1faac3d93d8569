package core

import "github.com/shopspring/decimal"

// RecordColumns is the fixed column order of normalized records in every
// persisted dataset.
var RecordColumns = []string{"registration_id", "tax_id", "entity_name", "quarter", "year", "amount"}

// Record is one normalized expenditure line.
//
// RegistrationID and Amount are always present. TaxID and EntityName may be
// empty; Quarter and Year are zero when unknown.
type Record struct {
	RegistrationID string
	TaxID          string
	EntityName     string
	Quarter        int
	Year           int
	Amount         decimal.Decimal
}

// Period returns the reporting period of the record.
func (r Record) Period() Period {
	return Period{Year: r.Year, Quarter: r.Quarter}
}

// Equal compares records field by field, using numeric equality for Amount.
func (r Record) Equal(o Record) bool {
	return r.RegistrationID == o.RegistrationID &&
		r.TaxID == o.TaxID &&
		r.EntityName == o.EntityName &&
		r.Quarter == o.Quarter &&
		r.Year == o.Year &&
		r.Amount.Equal(o.Amount)
}

// Partitions holds the four quality categories of a consolidated dataset.
type Partitions struct {
	Valid        []Record
	Negative     []Record
	Zero         []Record
	InvalidTaxID []Record
}

// Total returns the number of records across all buckets. Buckets may
// overlap, so this can exceed the size of the input dataset.
func (p Partitions) Total() int {
	return len(p.Valid) + len(p.Negative) + len(p.Zero) + len(p.InvalidTaxID)
}
