// Package partition splits a consolidated dataset into quality buckets.
package partition

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

// Mode selects how records are assigned to buckets.
type Mode string

const (
	// ModeExclusive assigns each record to exactly one bucket using the
	// priority chain invalid tax id, negative, zero, valid.
	ModeExclusive Mode = "exclusive"
	// ModeOverlapping evaluates every bucket independently, so a record with
	// an invalid tax id also lands in negative or zero when its amount is
	// not positive. Only Valid is disjoint from the rest.
	ModeOverlapping Mode = "overlapping"
)

// ParseMode parses a mode name. The empty string selects ModeExclusive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExclusive:
		return ModeExclusive, nil
	case ModeOverlapping:
		return ModeOverlapping, nil
	}
	return "", fmt.Errorf("unknown partition mode %q (want exclusive or overlapping)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Options configures Partition.
type Options struct {
	// ValidateIdentifiers enables tax id checking. When false every record
	// is treated as carrying a valid identifier.
	ValidateIdentifiers bool
	Mode                Mode
	Validator           taxid.Validator
}

// Partition assigns records to the valid, negative, zero and invalid tax id
// buckets. Input order is preserved within each bucket.
func Partition(records []core.Record, opts Options) core.Partitions {
	var p core.Partitions
	for _, r := range records {
		validID := !opts.ValidateIdentifiers || opts.Validator.Validate(r.TaxID)
		sign := r.Amount.Sign()

		if opts.Mode == ModeOverlapping {
			if sign > 0 && validID {
				p.Valid = append(p.Valid, r)
			}
			if sign < 0 {
				p.Negative = append(p.Negative, r)
			}
			if sign == 0 {
				p.Zero = append(p.Zero, r)
			}
			if !validID {
				p.InvalidTaxID = append(p.InvalidTaxID, r)
			}
			continue
		}

		switch {
		case !validID:
			p.InvalidTaxID = append(p.InvalidTaxID, r)
		case sign < 0:
			p.Negative = append(p.Negative, r)
		case sign == 0:
			p.Zero = append(p.Zero, r)
		default:
			p.Valid = append(p.Valid, r)
		}
	}
	return p
}
