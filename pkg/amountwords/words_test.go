package amountwords

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRupees(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"zero", "0", "Zero Rupees Only"},
		{"one", "1", "One Rupee Only"},
		{"teens", "15", "Fifteen Rupees Only"},
		{"hundred_and", "150", "One Hundred and Fifty Rupees Only"},
		{"exact_lakh", "100000", "One Lakh Rupees Only"},
		{"lakhs", "913183", "Nine Lakh Thirteen Thousand One Hundred and Eighty Three Rupees Only"},
		{"crores", "12345678", "One Crore Twenty Three Lakh Forty Five Thousand Six Hundred and Seventy Eight Rupees Only"},
		{"hundred_crore", "1000000000", "One Hundred Crore Rupees Only"},
		{"paise", "118.50", "One Hundred and Eighteen Rupees and Fifty Paise Only"},
		{"paise_only", "0.05", "Five Paise Only"},
		{"rounds_to_paise", "10.999", "Eleven Rupees Only"},
		{"negative", "-50", "Minus Fifty Rupees Only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rupees(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestSpell(t *testing.T) {
	assert.Equal(t, "Zero", Spell(0))
	assert.Equal(t, "Ninety Nine", Spell(99))
	assert.Equal(t, "Two Thousand and Five", Spell(2005))
}
