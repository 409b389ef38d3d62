package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Khata entry types. A DEBIT increases what the party owes us.
const (
	EntryDebit  = "DEBIT"
	EntryCredit = "CREDIT"
)

// Khata reference types
const (
	RefManual       = "MANUAL"
	RefInvoice      = DocInvoice
	RefPurchaseBill = DocPurchaseBill
	RefPayment      = "PAYMENT"
)

// KhataEntry is one posting in a party's running account.
type KhataEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PartyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_khata_party_date,priority:1" json:"party_id"`
	EntryType     string          `gorm:"type:varchar(6);not null" json:"entry_type"` // DEBIT, CREDIT
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	EntryDate     time.Time       `gorm:"type:date;not null;index:idx_khata_party_date,priority:2" json:"entry_date"`
	Description   string          `gorm:"type:text" json:"description"`
	ReferenceType string          `gorm:"type:varchar(20);not null;default:'MANUAL';index" json:"reference_type"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on the party balance.
func (e KhataEntry) Signed() decimal.Decimal {
	if e.EntryType == EntryCredit {
		return e.Amount.Neg()
	}
	return e.Amount
}
