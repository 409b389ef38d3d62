package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRule is a GST slab for an HSN class with temporal validity.
// An empty HSNPrefix matches every item.
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(100);not null" json:"name"`
	HSNPrefix     string          `gorm:"column:hsn_prefix;type:varchar(8);not null;default:'';index" json:"hsn_prefix"`
	RatePercent   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate_percent"` // e.g. 18 = 18%
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"` // nil = open ended
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ActiveOn reports whether the rule applies on the given day.
func (r TaxRule) ActiveOn(day time.Time) bool {
	if day.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !day.After(*r.EffectiveTo)
}
