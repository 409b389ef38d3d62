package service

import (
	"context"
	"net/http"
	"testing"

	"billbook/internal/events"
	"billbook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemFixtureSet struct {
	svc       ItemService
	repo      *fakeItemRepo
	audit     *fakeAuditRepo
	published *recordingPublisher
}

func newItemFixtureSet() itemFixtureSet {
	f := itemFixtureSet{
		repo:      newFakeItemRepo(),
		audit:     &fakeAuditRepo{},
		published: &recordingPublisher{},
	}
	f.svc = NewItemService(f.repo, fixedRates{rate: dec("12")}, f.audit, fakeTxManager{}, events.NewDispatcher(f.published))
	return f
}

func TestItemService_CreateTakesRateFromRules(t *testing.T) {
	f := newItemFixtureSet()
	ctx := context.Background()

	res, err := f.svc.CreateItem(ctx, "", CreateItemRequest{
		SKU:          "NB-A5",
		Name:         "Notebook A5",
		HSNCode:      "4820",
		Unit:         "pcs",
		SalePrice:    "45",
		OpeningStock: "120",
	})
	require.NoError(t, err)
	assert.Equal(t, "12.00", res.TaxRatePercent)
	assert.Equal(t, "PCS", res.Unit)
	assert.Equal(t, "120", res.CurrentStock)

	moves, total, err := f.svc.ListMovements(ctx, res.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, model.StockIn, moves[0].Direction)
	assert.Equal(t, model.RefAdjustment, moves[0].ReferenceType)
	assert.Equal(t, []events.Type{events.StockChanged}, f.published.types())

	explicit := "0"
	zero, err := f.svc.CreateItem(ctx, "", CreateItemRequest{SKU: "MILK", Name: "Milk", TaxRatePercent: &explicit})
	require.NoError(t, err)
	assert.Equal(t, "0.00", zero.TaxRatePercent)
	assert.Equal(t, "NOS", zero.Unit)
}

func TestItemService_DuplicateSKU(t *testing.T) {
	f := newItemFixtureSet()
	ctx := context.Background()

	first, err := f.svc.CreateItem(ctx, "", CreateItemRequest{SKU: "NB-A5", Name: "Notebook A5"})
	require.NoError(t, err)
	second, err := f.svc.CreateItem(ctx, "", CreateItemRequest{SKU: "NB-A4", Name: "Notebook A4"})
	require.NoError(t, err)

	_, err = f.svc.CreateItem(ctx, "", CreateItemRequest{SKU: "NB-A5", Name: "Copy"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	sku := "NB-A5"
	_, err = f.svc.UpdateItem(ctx, "", second.ID, UpdateItemRequest{SKU: &sku})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	name := "Notebook A5 ruled"
	updated, err := f.svc.UpdateItem(ctx, "", first.ID, UpdateItemRequest{SKU: &sku, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
}

func TestItemService_AdjustStock(t *testing.T) {
	f := newItemFixtureSet()
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, "", CreateItemRequest{SKU: "INK", Name: "Ink bottle", OpeningStock: "5"})
	require.NoError(t, err)

	_, err = f.svc.AdjustStock(ctx, "", item.ID, StockAdjustmentRequest{Direction: model.StockOut, Quantity: "6"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = f.svc.AdjustStock(ctx, "", item.ID, StockAdjustmentRequest{Direction: model.StockOut, Quantity: "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(err))
	assert.Equal(t, []string{"quantity"}, fieldsOf(err))

	res, err := f.svc.AdjustStock(ctx, "", item.ID, StockAdjustmentRequest{Direction: model.StockOut, Quantity: "2", Note: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, "3", res.CurrentStock)

	res, err = f.svc.AdjustStock(ctx, "", item.ID, StockAdjustmentRequest{Direction: model.StockIn, Quantity: "10"})
	require.NoError(t, err)
	assert.Equal(t, "13", res.CurrentStock)

	_, total, err := f.svc.ListMovements(ctx, item.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{model.ActionCreateItem, model.ActionAdjustStock, model.ActionAdjustStock}, f.audit.actions())
}

func TestItemService_Validation(t *testing.T) {
	f := newItemFixtureSet()

	rate := "140"
	_, err := f.svc.CreateItem(context.Background(), "", CreateItemRequest{
		SKU:            "BAD",
		Name:           "Bad",
		SalePrice:      "-1",
		PurchasePrice:  "abc",
		TaxRatePercent: &rate,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(err))
	assert.ElementsMatch(t, []string{"sale_price", "purchase_price", "tax_rate_percent"}, fieldsOf(err))
	assert.Empty(t, f.repo.items)
}
