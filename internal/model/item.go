package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalogue entry that can be sold or purchased.
type Item struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU            string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	HSNCode        string          `gorm:"column:hsn_code;type:varchar(8);index" json:"hsn_code"`
	Unit           string          `gorm:"type:varchar(20);not null;default:'NOS'" json:"unit"`
	SalePrice      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"sale_price"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"purchase_price"`
	TaxRatePercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate_percent"`
	CurrentStock   decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0" json:"current_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// StockMovement direction constants
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// RefAdjustment marks stock movements entered by hand rather than by a document.
const RefAdjustment = "ADJUSTMENT"

// StockMovement records every change to an item's stock and the document that caused it.
type StockMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Direction     string          `gorm:"type:varchar(3);not null" json:"direction"` // IN, OUT
	Quantity      decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity"`
	StockAfter    decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"stock_after"`
	ReferenceType string          `gorm:"type:varchar(20);not null;index" json:"reference_type"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
