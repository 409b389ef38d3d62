package repository

import (
	"context"
	"time"

	"billbook/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartyTotals is the sum of debits and credits posted to one party.
type PartyTotals struct {
	PartyID uuid.UUID       `gorm:"column:party_id"`
	Debit   decimal.Decimal `gorm:"column:debit"`
	Credit  decimal.Decimal `gorm:"column:credit"`
}

type sumRow struct {
	Total decimal.Decimal `gorm:"column:total"`
}

type KhataListFilter struct {
	PartyID uuid.UUID
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

type KhataRepository interface {
	Create(ctx context.Context, entry *model.KhataEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByReference(ctx context.Context, refType string, refID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.KhataEntry, error)
	List(ctx context.Context, filter KhataListFilter) ([]model.KhataEntry, int64, error)
	// SignedSumBefore sums the entries that precede the requested page:
	// everything dated before filter.From plus the first skip entries in range.
	SignedSumBefore(ctx context.Context, filter KhataListFilter, skip int) (decimal.Decimal, error)
	Totals(ctx context.Context, partyID uuid.UUID) (PartyTotals, error)
	TotalsByParty(ctx context.Context) ([]PartyTotals, error)
}

type khataRepository struct {
	db *gorm.DB
}

func NewKhataRepository(db *gorm.DB) KhataRepository {
	return &khataRepository{db: db}
}

const signedAmount = "CASE WHEN entry_type = 'DEBIT' THEN amount ELSE -amount END"

func (r *khataRepository) Create(ctx context.Context, entry *model.KhataEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *khataRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.KhataEntry{}).Error
}

func (r *khataRepository) DeleteByReference(ctx context.Context, refType string, refID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Delete(&model.KhataEntry{}).Error
}

func (r *khataRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.KhataEntry, error) {
	var entry model.KhataEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *khataRepository) rangeScope(filter KhataListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("party_id = ?", filter.PartyID)
		if filter.From != nil {
			db = db.Where("entry_date >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("entry_date <= ?", *filter.To)
		}
		return db
	}
}

func (r *khataRepository) List(ctx context.Context, filter KhataListFilter) ([]model.KhataEntry, int64, error) {
	var entries []model.KhataEntry
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.KhataEntry{}).Scopes(r.rangeScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(r.rangeScope(filter)).
		Order("entry_date ASC, created_at ASC, id ASC").
		Offset(offset).Limit(filter.Limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *khataRepository) SignedSumBefore(ctx context.Context, filter KhataListFilter, skip int) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db)
	sum := decimal.Zero

	if filter.From != nil {
		var earlier sumRow
		if err := db.Model(&model.KhataEntry{}).
			Select("COALESCE(SUM("+signedAmount+"), 0) AS total").
			Where("party_id = ? AND entry_date < ?", filter.PartyID, *filter.From).
			Scan(&earlier).Error; err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(earlier.Total)
	}

	if skip > 0 {
		page := db.Model(&model.KhataEntry{}).
			Select("entry_type, amount").
			Scopes(r.rangeScope(filter)).
			Order("entry_date ASC, created_at ASC, id ASC").
			Limit(skip)
		var skipped sumRow
		if err := db.Table("(?) AS page", page).
			Select("COALESCE(SUM(" + signedAmount + "), 0) AS total").
			Scan(&skipped).Error; err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(skipped.Total)
	}

	return sum, nil
}

func (r *khataRepository) Totals(ctx context.Context, partyID uuid.UUID) (PartyTotals, error) {
	totals := PartyTotals{PartyID: partyID}
	if err := GetDB(ctx, r.db).Model(&model.KhataEntry{}).
		Select("COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS debit, "+
			"COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS credit").
		Where("party_id = ?", partyID).
		Scan(&totals).Error; err != nil {
		return PartyTotals{}, err
	}
	totals.PartyID = partyID
	return totals, nil
}

func (r *khataRepository) TotalsByParty(ctx context.Context) ([]PartyTotals, error) {
	var rows []PartyTotals
	if err := GetDB(ctx, r.db).Model(&model.KhataEntry{}).
		Select("party_id, " +
			"COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS debit, " +
			"COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS credit").
		Group("party_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
