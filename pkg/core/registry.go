package core

import "github.com/shopspring/decimal"

// RegistryEntry is one regulated operator from the registry reference file.
type RegistryEntry struct {
	RegistrationID   string
	TaxID            string
	EntityName       string
	TradeName        string
	CategoryCode     string
	JurisdictionCode string
	RegistrationDate string
}

// EnrichedColumns is the column order of enriched expense datasets.
var EnrichedColumns = []string{
	"registration_id", "tax_id", "entity_name", "category_code", "jurisdiction_code",
	"quarter", "year", "amount",
}

// EnrichedRecord is a Record joined with its registry attributes.
type EnrichedRecord struct {
	Record
	CategoryCode     string
	JurisdictionCode string
}

// AggregateColumns is the column order of aggregated expense datasets.
var AggregateColumns = []string{
	"registration_id", "tax_id", "entity_name", "category_code", "jurisdiction_code",
	"year", "total", "quarterly_mean", "std_dev", "quarters",
}

// Aggregate summarises one operator's expenses over a year.
type Aggregate struct {
	RegistrationID   string
	TaxID            string
	EntityName       string
	CategoryCode     string
	JurisdictionCode string
	Year             int
	Total            decimal.Decimal
	QuarterlyMean    decimal.Decimal
	// StdDev is the sample standard deviation; nil when fewer than two quarters exist.
	StdDev   *float64
	Quarters int
}
