package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodTotals aggregates documents of one kind over a reporting bucket.
type PeriodTotals struct {
	Period      time.Time       `json:"period"`
	Documents   int64           `json:"documents"`
	SubTotal    decimal.Decimal `json:"sub_total"`
	TotalTax    decimal.Decimal `json:"total_tax"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ItemRanking is an item ranked by the quantity sold on invoices.
type ItemRanking struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}
