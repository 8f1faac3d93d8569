// Package taxid validates and normalizes 14-digit business tax identifiers (CNPJ).
package taxid

import (
	"fmt"
	"strings"
)

// Length is the number of digits in a normalized identifier.
const Length = 14

// EmptyPolicy decides how an identifier with no digits is judged.
type EmptyPolicy int

const (
	// EmptyInvalid rejects identifiers that strip to the empty string.
	EmptyInvalid EmptyPolicy = iota
	// EmptyValid accepts identifiers that strip to the empty string.
	EmptyValid
)

// ParseEmptyPolicy parses "invalid" or "valid".
func ParseEmptyPolicy(s string) (EmptyPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "invalid":
		return EmptyInvalid, true
	case "valid":
		return EmptyValid, true
	}
	return EmptyInvalid, false
}

func (p EmptyPolicy) String() string {
	if p == EmptyValid {
		return "valid"
	}
	return "invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (p EmptyPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *EmptyPolicy) UnmarshalText(text []byte) error {
	v, ok := ParseEmptyPolicy(string(text))
	if !ok {
		return fmt.Errorf("unknown empty tax id policy %q (want invalid or valid)", text)
	}
	*p = v
	return nil
}

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Validator checks identifiers against the check-digit algorithm.
type Validator struct {
	Empty EmptyPolicy
}

// Validate reports whether id is a well-formed identifier under the default
// policy, where empty input is invalid.
func Validate(id string) bool {
	return Validator{}.Validate(id)
}

// Validate reports whether id carries correct check digits. Non-digit
// characters are ignored.
func (v Validator) Validate(id string) bool {
	d := Digits(id)
	if d == "" {
		return v.Empty == EmptyValid
	}
	if len(d) != Length || allSame(d) {
		return false
	}
	first := checkDigit(d[:12], firstWeights)
	second := checkDigit(d[:12]+string(first), secondWeights)
	return d[12] == first && d[13] == second
}

// Normalize strips non-digits and left-pads with zeros to 14 characters.
// It returns false when id holds no digits.
// Inputs longer than 14 digits are returned as-is and stay invalid.
func Normalize(id string) (string, bool) {
	d := Digits(id)
	if d == "" {
		return "", false
	}
	if len(d) < Length {
		d = strings.Repeat("0", Length-len(d)) + d
	}
	return d, true
}

// Digits returns s with every non-ASCII-digit rune removed.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func checkDigit(digits string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

func allSame(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}
