// Package enrich joins valid expenses with the operator registry and
// aggregates them per operator and year.
package enrich

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// Lookup resolves registry entries by registration id.
type Lookup interface {
	Lookup(registrationID string) (core.RegistryEntry, bool)
}

// Join attaches registry attributes to each record. Tax id and entity name
// from the record take precedence; blanks are filled from the registry. The
// tax id is normalized and records whose id fails validation are dropped.
func Join(records []core.Record, reg Lookup, v taxid.Validator) []core.EnrichedRecord {
	out := make([]core.EnrichedRecord, 0, len(records))
	for _, r := range records {
		e := core.EnrichedRecord{Record: r}
		if entry, ok := reg.Lookup(r.RegistrationID); ok {
			if e.TaxID == "" {
				e.TaxID = entry.TaxID
			}
			if e.EntityName == "" {
				e.EntityName = entry.EntityName
			}
			e.CategoryCode = entry.CategoryCode
			e.JurisdictionCode = entry.JurisdictionCode
		}
		if id, ok := taxid.Normalize(e.TaxID); ok {
			e.TaxID = id
		}
		if !v.Validate(e.TaxID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type groupKey struct {
	registrationID   string
	taxID            string
	entityName       string
	categoryCode     string
	jurisdictionCode string
	year             int
}

// Aggregate sums expenses per operator and year. Amounts are first summed
// per quarter; the mean and sample standard deviation are taken over those
// quarterly totals. Results are ordered by total, largest first.
func Aggregate(records []core.EnrichedRecord) []core.Aggregate {
	quarters := make(map[groupKey]map[int]decimal.Decimal)
	var order []groupKey
	for _, r := range records {
		k := groupKey{r.RegistrationID, r.TaxID, r.EntityName, r.CategoryCode, r.JurisdictionCode, r.Year}
		q, ok := quarters[k]
		if !ok {
			q = make(map[int]decimal.Decimal)
			quarters[k] = q
			order = append(order, k)
		}
		q[r.Quarter] = q[r.Quarter].Add(r.Amount)
	}

	out := make([]core.Aggregate, 0, len(order))
	for _, k := range order {
		totals := quarters[k]
		total := decimal.Zero
		for _, v := range totals {
			total = total.Add(v)
		}
		n := len(totals)
		out = append(out, core.Aggregate{
			RegistrationID:   k.registrationID,
			TaxID:            k.taxID,
			EntityName:       k.entityName,
			CategoryCode:     k.categoryCode,
			JurisdictionCode: k.jurisdictionCode,
			Year:             k.year,
			Total:            total,
			QuarterlyMean:    total.Div(decimal.NewFromInt(int64(n))).Round(2),
			StdDev:           sampleStdDev(totals),
			Quarters:         n,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		if out[i].RegistrationID != out[j].RegistrationID {
			return out[i].RegistrationID < out[j].RegistrationID
		}
		return out[i].Year < out[j].Year
	})
	return out
}

func sampleStdDev(values map[int]decimal.Decimal) *float64 {
	n := len(values)
	if n < 2 {
		return nil
	}
	var sum float64
	xs := make([]float64, 0, n)
	for _, v := range values {
		f := v.InexactFloat64()
		xs = append(xs, f)
		sum += f
	}
	mean := sum / float64(n)
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	std := math.Sqrt(ss / float64(n-1))
	return &std
}
