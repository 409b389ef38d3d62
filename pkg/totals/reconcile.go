package totals

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest difference tolerated between submitted and
// computed totals before they are reported as a mismatch.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Submitted carries the totals a client claims for a document. Nil fields were
// not sent and are not checked.
type Submitted struct {
	SubTotal    *decimal.Decimal
	CGSTAmount  *decimal.Decimal
	SGSTAmount  *decimal.Decimal
	RoundOff    *decimal.Decimal
	TotalAmount *decimal.Decimal
}

// Mismatch describes one submitted field that disagrees with the computed value.
type Mismatch struct {
	Field    string          `json:"field"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Field, m.Expected.StringFixed(MoneyPlaces), m.Actual.StringFixed(MoneyPlaces))
}

// Reconcile compares submitted totals with computed ones. The server result is
// authoritative; mismatches are returned for reporting, never applied.
func Reconcile(submitted Submitted, computed Result, tolerance decimal.Decimal) []Mismatch {
	checks := []struct {
		field    string
		actual   *decimal.Decimal
		expected decimal.Decimal
	}{
		{"sub_total", submitted.SubTotal, computed.SubTotal},
		{"cgst_amount", submitted.CGSTAmount, computed.CGSTAmount},
		{"sgst_amount", submitted.SGSTAmount, computed.SGSTAmount},
		{"round_off", submitted.RoundOff, computed.RoundOff},
		{"total_amount", submitted.TotalAmount, computed.TotalAmount},
	}

	var mismatches []Mismatch
	for _, c := range checks {
		if c.actual == nil {
			continue
		}
		if c.actual.Sub(c.expected).Abs().GreaterThan(tolerance) {
			mismatches = append(mismatches, Mismatch{Field: c.field, Expected: c.expected, Actual: *c.actual})
		}
	}
	return mismatches
}
