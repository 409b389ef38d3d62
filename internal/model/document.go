package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document kinds, also used as ledger and stock reference types.
const (
	DocInvoice      = "INVOICE"
	DocOrder        = "ORDER"
	DocPurchaseBill = "PURCHASE_BILL"
)

// Invoice and purchase bill payment states.
const (
	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// Order states.
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusConverted = "CONVERTED"
	OrderStatusCancelled = "CANCELLED"
)

// Totals are the persisted figures of a billing document. They are always
// written from the server-side totals computation, never from client input.
type Totals struct {
	SubTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"sub_total"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"`
	TotalTax    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_tax"`
	CGSTAmount  decimal.Decimal `gorm:"column:cgst_amount;type:decimal(18,2);not null;default:0" json:"cgst_amount"`
	SGSTAmount  decimal.Decimal `gorm:"column:sgst_amount;type:decimal(18,2);not null;default:0" json:"sgst_amount"`
	IGSTAmount  decimal.Decimal `gorm:"column:igst_amount;type:decimal(18,2);not null;default:0" json:"igst_amount"`
	RoundOff    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"round_off"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`
}

// Line is the shared shape of a document row.
type Line struct {
	ItemID         *uuid.UUID      `gorm:"type:uuid;index" json:"item_id"`
	Description    string          `gorm:"type:varchar(500);not null" json:"description"`
	HSNCode        string          `gorm:"column:hsn_code;type:varchar(8)" json:"hsn_code"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity"`
	Rate           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"rate"`
	TaxRatePercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate_percent"`
	LineAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_amount"`
	LineTax        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"line_tax"`
	Position       int             `gorm:"not null;default:0" json:"position"`
}

type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	PartyID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"party_id"`
	Party       *Party          `gorm:"foreignKey:PartyID" json:"party,omitempty"`
	OrderID     *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	InvoiceDate time.Time       `gorm:"type:date;not null;index" json:"invoice_date"`
	DueDate     *time.Time      `gorm:"type:date" json:"due_date"`
	Status      string          `gorm:"type:varchar(20);not null;default:'UNPAID';index" json:"status"`
	Notes       string          `gorm:"type:text" json:"notes"`
	Totals      Totals          `gorm:"embedded" json:"totals"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount_paid"`
	Items       []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedBy   *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Line      `gorm:"embedded"`
}

type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNo   string      `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_no"`
	PartyID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"party_id"`
	Party     *Party      `gorm:"foreignKey:PartyID" json:"party,omitempty"`
	OrderDate time.Time   `gorm:"type:date;not null;index" json:"order_date"`
	Status    string      `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	InvoiceID *uuid.UUID  `gorm:"type:uuid" json:"invoice_id"`
	Notes     string      `gorm:"type:text" json:"notes"`
	Totals    Totals      `gorm:"embedded" json:"totals"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedBy *uuid.UUID  `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Line    `gorm:"embedded"`
}

// PurchaseBill is a bill received from a vendor.
type PurchaseBill struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BillNo       string             `gorm:"type:varchar(30);uniqueIndex;not null" json:"bill_no"`
	VendorBillNo string             `gorm:"type:varchar(50)" json:"vendor_bill_no"`
	PartyID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"party_id"`
	Party        *Party             `gorm:"foreignKey:PartyID" json:"party,omitempty"`
	BillDate     time.Time          `gorm:"type:date;not null;index" json:"bill_date"`
	DueDate      *time.Time         `gorm:"type:date" json:"due_date"`
	Status       string             `gorm:"type:varchar(20);not null;default:'UNPAID';index" json:"status"`
	Notes        string             `gorm:"type:text" json:"notes"`
	Totals       Totals             `gorm:"embedded" json:"totals"`
	AmountPaid   decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0" json:"amount_paid"`
	Items        []PurchaseBillItem `gorm:"foreignKey:PurchaseBillID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedBy    *uuid.UUID         `gorm:"type:uuid" json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type PurchaseBillItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseBillID uuid.UUID `gorm:"type:uuid;not null;index" json:"purchase_bill_id"`
	Line           `gorm:"embedded"`
}

// Payment is money received against an invoice or paid against a purchase bill.
type Payment struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DocumentType string          `gorm:"type:varchar(20);not null;index" json:"document_type"` // INVOICE, PURCHASE_BILL
	DocumentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	PartyID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"party_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaidOn       time.Time       `gorm:"type:date;not null" json:"paid_on"`
	Method       string          `gorm:"type:varchar(20);not null;default:'CASH'" json:"method"`
	Reference    string          `gorm:"type:varchar(100)" json:"reference"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PaymentStatus derives the status of a document from what has been paid.
func PaymentStatus(total, paid decimal.Decimal) string {
	switch {
	case paid.IsZero() || paid.IsNegative():
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}
