package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartyType enum constants
const (
	PartyTypeClient = "CLIENT"
	PartyTypeVendor = "VENDOR"
	PartyTypeBoth   = "BOTH"
)

// Party is anyone the business bills or buys from.
type Party struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Type           string          `gorm:"type:varchar(10);not null;index" json:"type"` // CLIENT, VENDOR, BOTH
	GSTIN          string          `gorm:"column:gstin;type:varchar(15);index" json:"gstin"`
	StateCode      string          `gorm:"type:varchar(2)" json:"state_code"`
	Phone          string          `gorm:"type:varchar(50)" json:"phone"`
	Email          string          `gorm:"type:varchar(255)" json:"email"`
	Address        string          `gorm:"type:text" json:"address"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"opening_balance"` // positive: party owes us
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsClient reports whether invoices and orders may be raised against p.
func (p Party) IsClient() bool {
	return p.Type == PartyTypeClient || p.Type == PartyTypeBoth
}

// IsVendor reports whether purchase bills may be recorded against p.
func (p Party) IsVendor() bool {
	return p.Type == PartyTypeVendor || p.Type == PartyTypeBoth
}
