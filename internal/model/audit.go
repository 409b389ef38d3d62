package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionCreateParty        = "CREATE_PARTY"
	ActionUpdateParty        = "UPDATE_PARTY"
	ActionDeleteParty        = "DELETE_PARTY"
	ActionCreateItem         = "CREATE_ITEM"
	ActionUpdateItem         = "UPDATE_ITEM"
	ActionDeleteItem         = "DELETE_ITEM"
	ActionAdjustStock        = "ADJUST_STOCK"
	ActionCreateInvoice      = "CREATE_INVOICE"
	ActionUpdateInvoice      = "UPDATE_INVOICE"
	ActionDeleteInvoice      = "DELETE_INVOICE"
	ActionRecordPayment      = "RECORD_PAYMENT"
	ActionCreateOrder        = "CREATE_ORDER"
	ActionUpdateOrder        = "UPDATE_ORDER"
	ActionDeleteOrder        = "DELETE_ORDER"
	ActionConvertOrder       = "CONVERT_ORDER"
	ActionCreatePurchaseBill = "CREATE_PURCHASE_BILL"
	ActionUpdatePurchaseBill = "UPDATE_PURCHASE_BILL"
	ActionDeletePurchaseBill = "DELETE_PURCHASE_BILL"
	ActionCreateKhataEntry   = "CREATE_KHATA_ENTRY"
	ActionDeleteKhataEntry   = "DELETE_KHATA_ENTRY"
	ActionCreateTaxRule      = "CREATE_TAX_RULE"
	ActionUpdateTaxRule      = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule      = "DELETE_TAX_RULE"
	ActionCreateUser         = "CREATE_USER"
	ActionUpdateUser         = "UPDATE_USER"
	ActionDeleteUser         = "DELETE_USER"
)

// AuditLog tracks who changed what and when.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
