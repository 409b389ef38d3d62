package totals

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a decimal that never fails to decode. Anything that is not a
// finite number (empty string, null, "abc", "NaN") decodes to zero, which is
// what a half-typed form field should contribute to a total.
type Number struct {
	decimal.Decimal
}

// N wraps a decimal into a Number.
func N(d decimal.Decimal) Number {
	return Number{Decimal: d}
}

// UnmarshalJSON accepts quoted and bare numbers and degrades everything else to zero.
func (n *Number) UnmarshalJSON(b []byte) error {
	n.Decimal = Parse(strings.Trim(string(b), `"`))
	return nil
}

// Parse converts s to a decimal, returning zero when s is not a number.
func Parse(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromFloat converts f to a decimal, mapping NaN and ±Inf to zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
