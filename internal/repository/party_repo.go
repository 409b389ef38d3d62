package repository

import (
	"context"

	"billbook/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartyListFilter struct {
	Type   string // CLIENT or VENDOR also match BOTH
	Search string
	Page   int
	Limit  int
}

type PartyRepository interface {
	Create(ctx context.Context, party *model.Party) error
	Update(ctx context.Context, party *model.Party) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Party, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Party, error)
	List(ctx context.Context, filter PartyListFilter) ([]model.Party, int64, error)
	// FindWithOpeningBalance returns parties carrying a non-zero opening balance.
	FindWithOpeningBalance(ctx context.Context) ([]model.Party, error)
}

type partyRepository struct {
	db *gorm.DB
}

func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

func (r *partyRepository) Create(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Create(party).Error
}

func (r *partyRepository) Update(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Save(party).Error
}

func (r *partyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Party{}).Error
}

func (r *partyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Party, error) {
	var party model.Party
	if err := GetDB(ctx, r.db).First(&party, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *partyRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Party, error) {
	var parties []model.Party
	if len(ids) == 0 {
		return parties, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

func (r *partyRepository) List(ctx context.Context, filter PartyListFilter) ([]model.Party, int64, error) {
	var parties []model.Party
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Type != "" {
			db = db.Where("type IN ?", []string{filter.Type, model.PartyTypeBoth})
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			db = db.Where("name ILIKE ? OR gstin ILIKE ? OR phone ILIKE ? OR email ILIKE ?", like, like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Party{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(scope).Order("name ASC").Offset(offset).Limit(filter.Limit).Find(&parties).Error; err != nil {
		return nil, 0, err
	}

	return parties, total, nil
}

func (r *partyRepository) FindWithOpeningBalance(ctx context.Context) ([]model.Party, error) {
	var parties []model.Party
	if err := GetDB(ctx, r.db).Where("opening_balance <> 0").Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}
