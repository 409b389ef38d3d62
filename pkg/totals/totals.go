// Package totals computes invoice, order and purchase-bill totals from a list of
// line items: subtotal, GST split into CGST and SGST, flat discount, round-off to
// the nearest currency unit and the payable grand total.
//
// Compute is a pure function. It never fails: malformed or out-of-domain inputs
// are normalised to zero contribution so that a preview can be produced on every
// change of a half-edited form.
package totals

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places totals are stored and displayed with.
const MoneyPlaces = 2

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// LineItem is one priced, optionally taxed row of a billing document.
type LineItem struct {
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	TaxRatePercent decimal.Decimal
}

// LineResult holds the derived amounts of a single line, rounded for display.
type LineResult struct {
	LineAmount decimal.Decimal
	LineTax    decimal.Decimal
}

// Result is the full totals breakdown. Monetary fields are rounded to
// MoneyPlaces; TotalAmount is always a whole currency unit.
type Result struct {
	SubTotal            decimal.Decimal
	TotalTax            decimal.Decimal
	CGSTAmount          decimal.Decimal
	SGSTAmount          decimal.Decimal
	IGSTAmount          decimal.Decimal // reserved for inter-state supply, always zero here
	Discount            decimal.Decimal
	DiscountedTotal     decimal.Decimal
	TotalBeforeRoundOff decimal.Decimal
	RoundOff            decimal.Decimal
	TotalAmount         decimal.Decimal
	Lines               []LineResult
}

// Compute derives the totals of items after a flat discount.
//
// The discount is subtracted from the pre-tax subtotal while tax is charged on
// the full line amounts. The grand total is the unrounded, tax-inclusive sum
// rounded to a whole unit, half away from zero. The reported fields are rounded
// to MoneyPlaces so that they balance exactly:
//
//	SubTotal - Discount + CGSTAmount + SGSTAmount + RoundOff == TotalAmount
//	CGSTAmount + SGSTAmount == TotalTax
//
// SGST takes the odd paisa of an uneven split and RoundOff absorbs the
// difference between the exact and the rounded breakdown.
func Compute(items []LineItem, discount decimal.Decimal) Result {
	subTotal := decimal.Zero
	totalTax := decimal.Zero
	lines := make([]LineResult, 0, len(items))

	for _, item := range items {
		qty := nonNegative(item.Quantity)
		rate := nonNegative(item.Rate)
		taxRate := clampPercent(item.TaxRatePercent)

		lineAmount := qty.Mul(rate)
		lineTax := lineAmount.Mul(taxRate).Shift(-2)

		subTotal = subTotal.Add(lineAmount)
		totalTax = totalTax.Add(lineTax)
		lines = append(lines, LineResult{
			LineAmount: lineAmount.Round(MoneyPlaces),
			LineTax:    lineTax.Round(MoneyPlaces),
		})
	}

	discount = nonNegative(discount)
	totalAmount := subTotal.Sub(discount).Add(totalTax).Round(0)

	shownSubTotal := subTotal.Round(MoneyPlaces)
	shownDiscount := discount.Round(MoneyPlaces)
	shownTax := totalTax.Round(MoneyPlaces)
	cgst := totalTax.Div(two).Round(MoneyPlaces)
	sgst := shownTax.Sub(cgst)

	discountedTotal := shownSubTotal.Sub(shownDiscount)
	beforeRoundOff := discountedTotal.Add(cgst).Add(sgst)

	return Result{
		SubTotal:            shownSubTotal,
		TotalTax:            shownTax,
		CGSTAmount:          cgst,
		SGSTAmount:          sgst,
		IGSTAmount:          decimal.Zero,
		Discount:            shownDiscount,
		DiscountedTotal:     discountedTotal,
		TotalBeforeRoundOff: beforeRoundOff,
		RoundOff:            totalAmount.Sub(beforeRoundOff),
		TotalAmount:         totalAmount,
		Lines:               lines,
	}
}

// TaxRate returns the effective blended tax rate of r in percent, or zero
// when there is nothing taxable.
func (r Result) TaxRate() decimal.Decimal {
	if r.SubTotal.IsZero() {
		return decimal.Zero
	}
	return r.TotalTax.Div(r.SubTotal).Mul(hundred).Round(MoneyPlaces)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}
