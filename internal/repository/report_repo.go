package repository

import (
	"context"
	"fmt"
	"time"

	"billbook/internal/model"

	"gorm.io/gorm"
)

// Report buckets accepted by DATE_TRUNC.
const (
	BucketWeek    = "week"
	BucketMonth   = "month"
	BucketQuarter = "quarter"
	BucketYear    = "year"
)

type ReportRepository interface {
	SalesByPeriod(ctx context.Context, bucket string, start, end time.Time) ([]model.PeriodTotals, error)
	PurchasesByPeriod(ctx context.Context, bucket string, start, end time.Time) ([]model.PeriodTotals, error)
	TopItems(ctx context.Context, start, end time.Time, limit int) ([]model.ItemRanking, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SalesByPeriod(ctx context.Context, bucket string, start, end time.Time) ([]model.PeriodTotals, error) {
	return r.byPeriod(ctx, "invoices", "invoice_date", bucket, start, end)
}

func (r *reportRepository) PurchasesByPeriod(ctx context.Context, bucket string, start, end time.Time) ([]model.PeriodTotals, error) {
	return r.byPeriod(ctx, "purchase_bills", "bill_date", bucket, start, end)
}

// byPeriod aggregates a document table. table and dateCol are fixed by the callers above.
func (r *reportRepository) byPeriod(ctx context.Context, table, dateCol, bucket string, start, end time.Time) ([]model.PeriodTotals, error) {
	query := fmt.Sprintf(`
		SELECT
			DATE_TRUNC(?, d.%[2]s) AS period,
			COUNT(*) AS documents,
			COALESCE(SUM(d.sub_total), 0) AS sub_total,
			COALESCE(SUM(d.total_tax), 0) AS total_tax,
			COALESCE(SUM(d.total_amount), 0) AS total_amount
		FROM %[1]s d
		WHERE d.%[2]s >= ? AND d.%[2]s <= ?
		GROUP BY 1
		ORDER BY 1
	`, table, dateCol)

	var rows []model.PeriodTotals
	if err := GetDB(ctx, r.db).Raw(query, bucket, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s by period: %w", table, err)
	}
	return rows, nil
}

func (r *reportRepository) TopItems(ctx context.Context, start, end time.Time, limit int) ([]model.ItemRanking, error) {
	var rankings []model.ItemRanking
	if err := GetDB(ctx, r.db).Table("invoice_items").
		Select("items.id AS item_id, items.name AS name, items.sku AS sku, "+
			"SUM(invoice_items.quantity) AS quantity, SUM(invoice_items.line_amount) AS amount").
		Joins("JOIN items ON items.id = invoice_items.item_id").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.invoice_date >= ? AND invoices.invoice_date <= ?", start, end).
		Group("items.id, items.name, items.sku").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	return rankings, nil
}
