package totals_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/pkg/totals"
)

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestReconcile(t *testing.T) {
	computed := totals.Compute([]totals.LineItem{item("1", "100", "18.5")}, decimal.Zero)

	t.Run("nothing_submitted", func(t *testing.T) {
		assert.Empty(t, totals.Reconcile(totals.Submitted{}, computed, totals.DefaultTolerance))
	})

	t.Run("within_tolerance", func(t *testing.T) {
		submitted := totals.Submitted{
			SubTotal:    ptr("100.00"),
			CGSTAmount:  ptr("9.26"),
			SGSTAmount:  ptr("9.24"),
			RoundOff:    ptr("0.5"),
			TotalAmount: ptr("119"),
		}
		assert.Empty(t, totals.Reconcile(submitted, computed, totals.DefaultTolerance))
	})

	t.Run("stale_preview", func(t *testing.T) {
		// A client that rounded each half separately and then floored the total.
		submitted := totals.Submitted{
			SubTotal:    ptr("100"),
			RoundOff:    ptr("-0.5"),
			TotalAmount: ptr("118"),
		}
		mismatches := totals.Reconcile(submitted, computed, totals.DefaultTolerance)

		require.Len(t, mismatches, 2)
		assert.Equal(t, "round_off", mismatches[0].Field)
		assert.Equal(t, "total_amount", mismatches[1].Field)
		assert.True(t, mismatches[1].Expected.Equal(dec("119")))
		assert.True(t, mismatches[1].Actual.Equal(dec("118")))
		assert.Equal(t, "total_amount: expected 119.00, got 118.00", mismatches[1].String())
	})

	t.Run("zero_tolerance", func(t *testing.T) {
		submitted := totals.Submitted{CGSTAmount: ptr("9.26")}
		mismatches := totals.Reconcile(submitted, computed, decimal.Zero)

		require.Len(t, mismatches, 1)
		assert.Equal(t, "cgst_amount", mismatches[0].Field)
	})
}
