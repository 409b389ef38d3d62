package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateItemRequest struct {
	SKU            string  `json:"sku" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	HSNCode        string  `json:"hsn_code"`
	Unit           string  `json:"unit"`
	SalePrice      string  `json:"sale_price"`
	PurchasePrice  string  `json:"purchase_price"`
	TaxRatePercent *string `json:"tax_rate_percent"` // omitted: taken from the GST rules for hsn_code
	OpeningStock   string  `json:"opening_stock"`
}

type UpdateItemRequest struct {
	SKU            *string `json:"sku"`
	Name           *string `json:"name"`
	HSNCode        *string `json:"hsn_code"`
	Unit           *string `json:"unit"`
	SalePrice      *string `json:"sale_price"`
	PurchasePrice  *string `json:"purchase_price"`
	TaxRatePercent *string `json:"tax_rate_percent"`
}

type StockAdjustmentRequest struct {
	Direction string `json:"direction" binding:"required,oneof=IN OUT"`
	Quantity  string `json:"quantity" binding:"required"`
	Note      string `json:"note"`
}

type ItemResponse struct {
	ID             string `json:"id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	HSNCode        string `json:"hsn_code"`
	Unit           string `json:"unit"`
	SalePrice      string `json:"sale_price"`
	PurchasePrice  string `json:"purchase_price"`
	TaxRatePercent string `json:"tax_rate_percent"`
	CurrentStock   string `json:"current_stock"`
	CreatedAt      string `json:"created_at"`
}

type StockMovementResponse struct {
	ID            string `json:"id"`
	ItemID        string `json:"item_id"`
	Direction     string `json:"direction"`
	Quantity      string `json:"quantity"`
	StockAfter    string `json:"stock_after"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// StockKeeper moves stock on behalf of billing documents. Move must run
// inside the caller's transaction; the item row is locked until it commits.
type StockKeeper interface {
	Move(ctx context.Context, itemID uuid.UUID, direction string, qty decimal.Decimal, refType string, refID *uuid.UUID) error
}

type ItemService interface {
	StockKeeper
	ListItems(ctx context.Context, search string, page, limit int) ([]ItemResponse, int64, error)
	GetItem(ctx context.Context, id string) (ItemResponse, error)
	CreateItem(ctx context.Context, userID string, req CreateItemRequest) (ItemResponse, error)
	UpdateItem(ctx context.Context, userID, id string, req UpdateItemRequest) (ItemResponse, error)
	DeleteItem(ctx context.Context, userID, id string) error
	AdjustStock(ctx context.Context, userID, id string, req StockAdjustmentRequest) (ItemResponse, error)
	ListMovements(ctx context.Context, id string, page, limit int) ([]StockMovementResponse, int64, error)
}

type itemService struct {
	repo       repository.ItemRepository
	rates      TaxRateResolver
	txManager  repository.TransactionManager
	audit      auditor
	dispatcher *events.Dispatcher
}

func NewItemService(
	repo repository.ItemRepository,
	rates TaxRateResolver,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	dispatcher *events.Dispatcher,
) ItemService {
	return &itemService{
		repo:       repo,
		rates:      rates,
		txManager:  txManager,
		audit:      auditor{repo: auditRepo},
		dispatcher: dispatcher,
	}
}

func (s *itemService) ListItems(ctx context.Context, search string, page, limit int) ([]ItemResponse, int64, error) {
	items, total, err := s.repo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch items: %w", err)
	}
	return lo.Map(items, func(it model.Item, _ int) ItemResponse { return toItemResponse(it) }), total, nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (ItemResponse, error) {
	itemID, err := parseID(id, "item")
	if err != nil {
		return ItemResponse{}, err
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return ItemResponse{}, notFound(err, "Item")
	}
	return toItemResponse(*item), nil
}

func (s *itemService) CreateItem(ctx context.Context, userID string, req CreateItemRequest) (ItemResponse, error) {
	item := model.Item{
		SKU:     strings.TrimSpace(req.SKU),
		Name:    strings.TrimSpace(req.Name),
		HSNCode: strings.TrimSpace(req.HSNCode),
		Unit:    strings.ToUpper(strings.TrimSpace(req.Unit)),
	}
	if item.Unit == "" {
		item.Unit = "NOS"
	}

	var fieldErrors []apperror.FieldError
	item.SalePrice = decimalField(&fieldErrors, "sale_price", req.SalePrice)
	item.PurchasePrice = decimalField(&fieldErrors, "purchase_price", req.PurchasePrice)
	opening := decimalField(&fieldErrors, "opening_stock", req.OpeningStock)
	if req.TaxRatePercent != nil {
		item.TaxRatePercent = taxRateField(&fieldErrors, *req.TaxRatePercent)
	}
	if len(fieldErrors) > 0 {
		return ItemResponse{}, apperror.NewValidationError(fieldErrors)
	}

	if req.TaxRatePercent == nil {
		rate, err := s.rates.RateFor(ctx, item.HSNCode, today())
		if err != nil {
			return ItemResponse{}, err
		}
		item.TaxRatePercent = rate
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUniqueSKU(txCtx, item.SKU, uuid.Nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &item); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		if opening.IsPositive() {
			if err := s.Move(txCtx, item.ID, model.StockIn, opening, model.RefAdjustment, nil); err != nil {
				return err
			}
			item.CurrentStock = opening
		}
		return s.audit.log(txCtx, userID, model.ActionCreateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(item), nil
}

func (s *itemService) UpdateItem(ctx context.Context, userID, id string, req UpdateItemRequest) (ItemResponse, error) {
	itemID, err := parseID(id, "item")
	if err != nil {
		return ItemResponse{}, err
	}

	var item *model.Item
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err = s.repo.FindByID(txCtx, itemID)
		if err != nil {
			return notFound(err, "Item")
		}

		var fieldErrors []apperror.FieldError
		if req.SKU != nil {
			item.SKU = strings.TrimSpace(*req.SKU)
			if item.SKU == "" {
				fieldErrors = append(fieldErrors, apperror.FieldError{Field: "sku", Message: "is required"})
			}
		}
		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
			if item.Name == "" {
				fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "is required"})
			}
		}
		if req.HSNCode != nil {
			item.HSNCode = strings.TrimSpace(*req.HSNCode)
		}
		if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
			item.Unit = strings.ToUpper(strings.TrimSpace(*req.Unit))
		}
		if req.SalePrice != nil {
			item.SalePrice = decimalField(&fieldErrors, "sale_price", *req.SalePrice)
		}
		if req.PurchasePrice != nil {
			item.PurchasePrice = decimalField(&fieldErrors, "purchase_price", *req.PurchasePrice)
		}
		if req.TaxRatePercent != nil {
			item.TaxRatePercent = taxRateField(&fieldErrors, *req.TaxRatePercent)
		}
		if len(fieldErrors) > 0 {
			return apperror.NewValidationError(fieldErrors)
		}

		if err := s.ensureUniqueSKU(txCtx, item.SKU, item.ID); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionUpdateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(*item), nil
}

func (s *itemService) DeleteItem(ctx context.Context, userID, id string) error {
	itemID, err := parseID(id, "item")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.repo.FindByID(txCtx, itemID)
		if err != nil {
			return notFound(err, "Item")
		}
		if err := s.repo.Delete(txCtx, itemID); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionDeleteItem, item.ID.String(), item.Name, nil)
	})
}

func (s *itemService) AdjustStock(ctx context.Context, userID, id string, req StockAdjustmentRequest) (ItemResponse, error) {
	itemID, err := parseID(id, "item")
	if err != nil {
		return ItemResponse{}, err
	}

	var fieldErrors []apperror.FieldError
	qty := decimalField(&fieldErrors, "quantity", req.Quantity)
	if len(fieldErrors) == 0 && !qty.IsPositive() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "quantity", Message: "must be greater than zero"})
	}
	if len(fieldErrors) > 0 {
		return ItemResponse{}, apperror.NewValidationError(fieldErrors)
	}

	var item *model.Item
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Move(txCtx, itemID, req.Direction, qty, model.RefAdjustment, nil); err != nil {
			return err
		}
		item, err = s.repo.FindByID(txCtx, itemID)
		if err != nil {
			return notFound(err, "Item")
		}
		return s.audit.log(txCtx, userID, model.ActionAdjustStock, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(*item), nil
}

func (s *itemService) ListMovements(ctx context.Context, id string, page, limit int) ([]StockMovementResponse, int64, error) {
	itemID, err := parseID(id, "item")
	if err != nil {
		return nil, 0, err
	}
	movements, total, err := s.repo.ListMovements(ctx, itemID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock movements: %w", err)
	}
	return lo.Map(movements, func(m model.StockMovement, _ int) StockMovementResponse {
		return StockMovementResponse{
			ID:            m.ID.String(),
			ItemID:        m.ItemID.String(),
			Direction:     m.Direction,
			Quantity:      m.Quantity.String(),
			StockAfter:    m.StockAfter.String(),
			ReferenceType: m.ReferenceType,
			ReferenceID:   optionalID(m.ReferenceID),
			CreatedAt:     m.CreatedAt.Format(dateTimeLayout),
		}
	}), total, nil
}

// Move locks the item row, applies the movement and records it. Outgoing
// stock never drives the level below zero.
func (s *itemService) Move(ctx context.Context, itemID uuid.UUID, direction string, qty decimal.Decimal, refType string, refID *uuid.UUID) error {
	item, err := s.repo.FindByIDForUpdate(ctx, itemID)
	if err != nil {
		return notFound(err, "Item")
	}

	stock := item.CurrentStock
	switch direction {
	case model.StockIn:
		stock = stock.Add(qty)
	case model.StockOut:
		if stock.LessThan(qty) {
			return &apperror.AppError{
				Code:    apperror.ErrInsufficientStock.Code,
				Message: fmt.Sprintf("Insufficient stock for %s: available %s, requested %s", item.Name, item.CurrentStock, qty),
			}
		}
		stock = stock.Sub(qty)
	default:
		return apperror.NewBadRequestError("invalid stock direction " + direction)
	}

	if err := s.repo.UpdateStock(ctx, itemID, stock); err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if err := s.repo.CreateMovement(ctx, &model.StockMovement{
		ItemID:        itemID,
		Direction:     direction,
		Quantity:      qty,
		StockAfter:    stock,
		ReferenceType: refType,
		ReferenceID:   refID,
	}); err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}

	repository.AfterCommit(ctx, func() {
		s.dispatcher.Dispatch(context.WithoutCancel(ctx), events.StockChanged, itemID.String(), map[string]string{
			"sku":           item.SKU,
			"name":          item.Name,
			"direction":     direction,
			"quantity":      qty.String(),
			"current_stock": stock.String(),
		})
	})
	return nil
}

// --- Helpers ---

func (s *itemService) ensureUniqueSKU(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check sku: %w", err)
	}
	if existing.ID != self {
		return apperror.NewConflictError(fmt.Sprintf("SKU %q already exists", sku))
	}
	return nil
}

// decimalField parses a non-negative decimal, recording a field error on failure.
func decimalField(fieldErrors *[]apperror.FieldError, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		*fieldErrors = append(*fieldErrors, apperror.FieldError{Field: field, Message: "must be a non-negative number"})
		return decimal.Zero
	}
	return d
}

func taxRateField(fieldErrors *[]apperror.FieldError, raw string) decimal.Decimal {
	d := decimalField(fieldErrors, "tax_rate_percent", raw)
	if d.GreaterThan(decimal.NewFromInt(100)) {
		*fieldErrors = append(*fieldErrors, apperror.FieldError{Field: "tax_rate_percent", Message: "must be between 0 and 100"})
	}
	return d
}

func toItemResponse(it model.Item) ItemResponse {
	return ItemResponse{
		ID:             it.ID.String(),
		SKU:            it.SKU,
		Name:           it.Name,
		HSNCode:        it.HSNCode,
		Unit:           it.Unit,
		SalePrice:      money(it.SalePrice),
		PurchasePrice:  money(it.PurchasePrice),
		TaxRatePercent: money(it.TaxRatePercent),
		CurrentStock:   it.CurrentStock.String(),
		CreatedAt:      it.CreatedAt.Format(dateTimeLayout),
	}
}
