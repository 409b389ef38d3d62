package service

import (
	"context"
	"testing"

	"billbook/internal/model"
	"billbook/pkg/totals"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalsPreview(t *testing.T) {
	items := newFakeItemRepo()
	pen := items.add(itemFixture("PEN", "10", "6", "12"))
	svc := NewTotalsService(items, fixedRates{rate: dec("5")}, totals.DefaultTolerance)

	rate := func(s string) *totals.Number { n := totals.N(dec(s)); return &n }

	tests := []struct {
		name      string
		req       TotalsPreviewRequest
		wantTotal string
		wantTax   string
	}{
		{
			name:      "empty form",
			req:       TotalsPreviewRequest{},
			wantTotal: "0.00",
			wantTax:   "0.00",
		},
		{
			name: "item defaults to sale price and item tax",
			req: TotalsPreviewRequest{Items: []LineRequest{
				{ItemID: pen.ID.String(), Quantity: totals.N(dec("10"))},
			}},
			wantTotal: "112.00",
			wantTax:   "12.00",
		},
		{
			name: "purchase kind uses purchase price",
			req: TotalsPreviewRequest{Kind: "purchase", Items: []LineRequest{
				{ItemID: pen.ID.String(), Quantity: totals.N(dec("10"))},
			}},
			wantTotal: "67.00", // 60 + 7.20 rounds down
			wantTax:   "7.20",
		},
		{
			name: "free text line falls back to the rule rate",
			req: TotalsPreviewRequest{Items: []LineRequest{
				{Description: "Delivery", Quantity: totals.N(dec("1")), Rate: rate("200")},
			}},
			wantTotal: "210.00",
			wantTax:   "10.00",
		},
		{
			name: "half edited rows contribute nothing",
			req: TotalsPreviewRequest{Items: []LineRequest{
				{ItemID: "not-an-id", Quantity: totals.N(dec("-3"))},
				{Description: "Delivery", Quantity: totals.N(dec("1")), Rate: rate("200")},
			}},
			wantTotal: "210.00",
			wantTax:   "10.00",
		},
		{
			name: "bad date is ignored",
			req: TotalsPreviewRequest{Date: "31/12/2024", Items: []LineRequest{
				{Description: "Delivery", Quantity: totals.N(dec("1")), Rate: rate("100"), TaxRatePercent: rate("0")},
			}},
			wantTotal: "100.00",
			wantTax:   "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Preview(context.Background(), tt.req)
			assert.Equal(t, tt.wantTotal, res.Totals.TotalAmount)
			assert.Equal(t, tt.wantTax, res.Totals.TotalTax)
			assert.Len(t, res.Lines, len(tt.req.Items))
			assert.NotEmpty(t, res.Totals.AmountInWords)
		})
	}
}

func TestTotalsPreview_ReconcilesSubmittedTotals(t *testing.T) {
	svc := NewTotalsService(newFakeItemRepo(), fixedRates{rate: dec("18")}, totals.DefaultTolerance)
	rate := totals.N(dec("100"))
	sub := totals.N(dec("100.005"))
	total := totals.N(dec("120"))

	res := svc.Preview(context.Background(), TotalsPreviewRequest{
		Items:     []LineRequest{{Description: "Service", Quantity: totals.N(dec("1")), Rate: &rate}},
		Submitted: &SubmittedTotals{SubTotal: &sub, TotalAmount: &total},
	})

	require.Len(t, res.Mismatches, 1, "sub_total is within tolerance")
	assert.Equal(t, "total_amount", res.Mismatches[0].Field)
	assert.Equal(t, "118.00", res.Mismatches[0].Expected)
	assert.Equal(t, "120.00", res.Mismatches[0].Actual)
}

func TestLineBuilder_DefaultsAndDescription(t *testing.T) {
	items := newFakeItemRepo()
	pen := items.add(itemFixture("PEN", "10", "6", "12"))
	b := newLineBuilder(items, fixedRates{rate: dec("18")}, totals.DefaultTolerance)

	built, err := b.build(context.Background(), lineBuildInput{
		Source: "test",
		Lines:  []LineRequest{{ItemID: pen.ID.String(), Quantity: totals.N(dec("2"))}},
		Day:    today(),
		Price:  salePrice,
	})
	require.NoError(t, err)
	require.Len(t, built.Lines, 1)

	line := built.Lines[0]
	assert.Equal(t, "Pen PEN", line.Description)
	assert.Equal(t, "9608", line.HSNCode)
	assert.True(t, dec("10").Equal(line.Rate))
	assert.True(t, dec("12").Equal(line.TaxRatePercent))
	assert.True(t, dec("20").Equal(line.LineAmount))
	assert.True(t, dec("2.40").Equal(line.LineTax))
}

func TestLineBuilder_UnknownItem(t *testing.T) {
	b := newLineBuilder(newFakeItemRepo(), fixedRates{rate: dec("18")}, totals.DefaultTolerance)
	_, err := b.build(context.Background(), lineBuildInput{
		Lines: []LineRequest{{ItemID: "3f1f5a2e-8d2c-4a57-9f43-6a0f0e7a1b11", Quantity: totals.N(dec("1"))}},
		Day:   today(),
		Price: salePrice,
	})
	require.Error(t, err)
	fields := fieldsOf(err)
	assert.Contains(t, fields, "items[0].item_id")
	assert.Contains(t, fields, "items[0].description")
	assert.Contains(t, fields, "items[0].rate")
}

func TestToTotalsResponse_Balances(t *testing.T) {
	b := newLineBuilder(newFakeItemRepo(), fixedRates{rate: dec("18")}, totals.DefaultTolerance)

	tests := []struct {
		name   string
		lines  []model.Line
		before string
		round  string
		total  string
	}{
		{
			name:   "half paisa line",
			lines:  []model.Line{{Quantity: dec("1"), Rate: dec("0.505")}},
			before: "0.51", round: "0.49", total: "1.00",
		},
		{
			name:   "odd paisa tax",
			lines:  []model.Line{{Quantity: dec("1"), Rate: dec("10.25"), TaxRatePercent: dec("12")}},
			before: "11.48", round: "-0.48", total: "11.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := b.compute("test", tt.lines, decimal.Zero, nil)
			res := toTotalsResponse(built.Totals)

			assert.Equal(t, tt.before, res.TotalBeforeRoundOff)
			assert.Equal(t, tt.round, res.RoundOff)
			assert.Equal(t, tt.total, res.TotalAmount)

			got := built.Totals
			assert.True(t, got.CGSTAmount.Add(got.SGSTAmount).Equal(got.TotalTax))
			sum := got.SubTotal.Sub(got.Discount).Add(got.CGSTAmount).Add(got.SGSTAmount).Add(got.RoundOff)
			assert.True(t, sum.Equal(got.TotalAmount), "%s != %s", sum, got.TotalAmount)
		})
	}
}
