package normalize

import "strings"

// Field is a semantic column the normalizer looks for.
type Field int

// Semantic fields, in resolution precedence order.
const (
	FieldRegistrationID Field = iota
	FieldTaxID
	FieldAmount
	FieldDate
	FieldEntityName
)

func (f Field) String() string {
	switch f {
	case FieldRegistrationID:
		return "registration_id"
	case FieldTaxID:
		return "tax_id"
	case FieldAmount:
		return "amount"
	case FieldDate:
		return "date"
	case FieldEntityName:
		return "entity_name"
	}
	return "unknown"
}

// ColumnRule maps a field to the header fragments that identify it.
type ColumnRule struct {
	Field      Field
	Substrings []string
}

// ColumnRules is the closed vocabulary of header synonyms. Matching is a
// case-insensitive substring test; the first header that matches wins.
var ColumnRules = []ColumnRule{
	{Field: FieldRegistrationID, Substrings: []string{"reg"}},
	{Field: FieldTaxID, Substrings: []string{"cnpj"}},
	{Field: FieldAmount, Substrings: []string{"vl_", "valor"}},
	{Field: FieldDate, Substrings: []string{"data"}},
	{Field: FieldEntityName, Substrings: []string{"razao"}},
}

// Columns holds resolved column indexes; -1 means absent.
type Columns struct {
	RegistrationID int
	TaxID          int
	Amount         int
	Date           int
	EntityName     int
}

// Complete reports whether the columns required to build records exist.
func (c Columns) Complete() bool {
	return c.RegistrationID >= 0 && c.Amount >= 0
}

// Resolve locates semantic columns in a header using ColumnRules.
func Resolve(header []string) Columns {
	c := Columns{RegistrationID: -1, TaxID: -1, Amount: -1, Date: -1, EntityName: -1}
	for _, rule := range ColumnRules {
		idx := find(header, rule.Substrings)
		switch rule.Field {
		case FieldRegistrationID:
			c.RegistrationID = idx
		case FieldTaxID:
			c.TaxID = idx
		case FieldAmount:
			c.Amount = idx
		case FieldDate:
			c.Date = idx
		case FieldEntityName:
			c.EntityName = idx
		}
	}
	return c
}

func find(header []string, substrings []string) int {
	for i, h := range header {
		lower := strings.ToLower(h)
		for _, s := range substrings {
			if strings.Contains(lower, s) {
				return i
			}
		}
	}
	return -1
}
