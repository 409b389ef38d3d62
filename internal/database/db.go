package database

import (
	"context"
	"log"

	"billbook/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the connection pool and migrates the schema.
func NewConnection(dsn string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if !debug {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates or alters every table the API uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.AuditLog{},
		&model.Party{},
		&model.Item{},
		&model.StockMovement{},
		&model.TaxRule{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.PurchaseBill{},
		&model.PurchaseBillItem{},
		&model.Payment{},
		&model.KhataEntry{},
	)
}

// Health pings the connection pool behind db.
type Health struct {
	DB *gorm.DB
}

func (h Health) Ping(ctx context.Context) error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
