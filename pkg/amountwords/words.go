// Package amountwords spells rupee amounts in Indian English using the
// lakh/crore grouping printed on invoices.
package amountwords

import (
	"strings"

	"github.com/shopspring/decimal"
)

var units = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var decades = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

const (
	crore    = 10000000
	lakh     = 100000
	thousand = 1000
)

// Rupees renders amount as e.g. "One Lakh Twenty Thousand Rupees and Fifty Paise Only".
// Paise are taken from the amount rounded to two places.
func Rupees(amount decimal.Decimal) string {
	amount = amount.Round(2)
	prefix := ""
	if amount.IsNegative() {
		prefix = "Minus "
		amount = amount.Neg()
	}

	whole := amount.Truncate(0)
	paise := amount.Sub(whole).Shift(2).IntPart()
	rupees := whole.IntPart()

	var b strings.Builder
	b.WriteString(prefix)
	if rupees == 0 && paise == 0 {
		b.WriteString("Zero Rupees Only")
		return b.String()
	}
	if rupees > 0 {
		b.WriteString(Spell(rupees))
		if rupees == 1 {
			b.WriteString(" Rupee")
		} else {
			b.WriteString(" Rupees")
		}
	}
	if paise > 0 {
		if rupees > 0 {
			b.WriteString(" and ")
		}
		b.WriteString(Spell(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// Spell writes a non-negative integer in words. Counts of crores above 99 are
// themselves spelled with Indian grouping ("One Hundred Crore").
func Spell(n int64) string {
	if n <= 0 {
		return "Zero"
	}
	return strings.Join(spell(n), " ")
}

func spell(n int64) []string {
	var parts []string
	if n >= crore {
		parts = append(parts, spell(n/crore)...)
		parts = append(parts, "Crore")
		n %= crore
	}
	for _, g := range []struct {
		size int64
		name string
	}{{lakh, "Lakh"}, {thousand, "Thousand"}, {100, "Hundred"}} {
		if n >= g.size {
			parts = append(parts, belowHundred(n/g.size), g.name)
			n %= g.size
		}
	}
	if n > 0 {
		if len(parts) > 0 {
			parts = append(parts, "and")
		}
		parts = append(parts, belowHundred(n))
	}
	return parts
}

func belowHundred(n int64) string {
	if n < 20 {
		return units[n]
	}
	if n%10 == 0 {
		return decades[n/10]
	}
	return decades[n/10] + " " + units[n%10]
}
