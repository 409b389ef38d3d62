package repository

import (
	"context"
	"time"

	"billbook/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentListFilter narrows a document listing. Zero values mean no filter.
type DocumentListFilter struct {
	PartyID *uuid.UUID
	Status  string
	Number  string // partial match on the document number
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

// DocumentRepository persists a billing document D together with its lines L.
type DocumentRepository[D any, L any] interface {
	Create(ctx context.Context, doc *D) error
	Update(ctx context.Context, doc *D) error
	ReplaceLines(ctx context.Context, docID uuid.UUID, lines []L) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*D, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*D, error)
	List(ctx context.Context, filter DocumentListFilter) ([]D, int64, error)
	// LastNumber returns the highest number starting with prefix, or "" when
	// there is none. Inside a transaction it also holds a lock on the prefix
	// until commit so concurrent creates are numbered one after another.
	LastNumber(ctx context.Context, prefix string) (string, error)
}

type (
	InvoiceRepository      = DocumentRepository[model.Invoice, model.InvoiceItem]
	OrderRepository        = DocumentRepository[model.Order, model.OrderItem]
	PurchaseBillRepository = DocumentRepository[model.PurchaseBill, model.PurchaseBillItem]
)

// documentColumns names the columns that differ between document tables.
type documentColumns struct {
	number string
	date   string
	lineFK string
}

type documentRepository[D any, L any] struct {
	db   *gorm.DB
	cols documentColumns
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &documentRepository[model.Invoice, model.InvoiceItem]{
		db:   db,
		cols: documentColumns{number: "invoice_no", date: "invoice_date", lineFK: "invoice_id"},
	}
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &documentRepository[model.Order, model.OrderItem]{
		db:   db,
		cols: documentColumns{number: "order_no", date: "order_date", lineFK: "order_id"},
	}
}

func NewPurchaseBillRepository(db *gorm.DB) PurchaseBillRepository {
	return &documentRepository[model.PurchaseBill, model.PurchaseBillItem]{
		db:   db,
		cols: documentColumns{number: "bill_no", date: "bill_date", lineFK: "purchase_bill_id"},
	}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *documentRepository[D, L]) Create(ctx context.Context, doc *D) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

// Update saves the document header only. Lines are written by ReplaceLines.
func (r *documentRepository[D, L]) Update(ctx context.Context, doc *D) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(doc).Error
}

func (r *documentRepository[D, L]) ReplaceLines(ctx context.Context, docID uuid.UUID, lines []L) error {
	db := GetDB(ctx, r.db)
	if err := db.Where(r.cols.lineFK+" = ?", docID).Delete(new(L)).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *documentRepository[D, L]) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where(r.cols.lineFK+" = ?", id).Delete(new(L)).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(new(D)).Error
}

func (r *documentRepository[D, L]) FindByID(ctx context.Context, id uuid.UUID) (*D, error) {
	doc := new(D)
	if err := GetDB(ctx, r.db).Preload("Party").Preload("Items", orderedLines).
		First(doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// FindByIDForUpdate locks the document row for the rest of the transaction.
func (r *documentRepository[D, L]) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*D, error) {
	doc := new(D)
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Party").Preload("Items", orderedLines).
		Where("id = ?", id).First(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepository[D, L]) List(ctx context.Context, filter DocumentListFilter) ([]D, int64, error) {
	var docs []D
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.PartyID != nil {
			db = db.Where("party_id = ?", *filter.PartyID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Number != "" {
			db = db.Where(r.cols.number+" ILIKE ?", "%"+filter.Number+"%")
		}
		if filter.From != nil {
			db = db.Where(r.cols.date+" >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where(r.cols.date+" <= ?", *filter.To)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(new(D)).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(scope).Preload("Party").Preload("Items", orderedLines).
		Order(r.cols.date + " DESC").Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository[D, L]) LastNumber(ctx context.Context, prefix string) (string, error) {
	db := GetDB(ctx, r.db)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", r.cols.number+":"+prefix).Error; err != nil {
		return "", err
	}

	var numbers []string
	err := db.Model(new(D)).
		Where(r.cols.number+" LIKE ?", prefix+"%").
		Order(r.cols.number+" DESC").
		Limit(1).
		Pluck(r.cols.number, &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}
