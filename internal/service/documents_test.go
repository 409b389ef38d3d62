package service

import (
	"context"
	"net/http"
	"testing"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/pkg/apperror"
	"billbook/pkg/totals"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type DocumentWorkflowSuite struct {
	suite.Suite
	ctx context.Context

	parties   *fakePartyRepo
	items     *fakeItemRepo
	khata     *fakeKhataRepo
	payments  *fakePaymentRepo
	audit     *fakeAuditRepo
	invoices  *fakeDocRepo[model.Invoice, model.InvoiceItem]
	orders    *fakeDocRepo[model.Order, model.OrderItem]
	bills     *fakeDocRepo[model.PurchaseBill, model.PurchaseBillItem]
	published *recordingPublisher

	invoiceService InvoiceService
	orderService   OrderService
	billService    PurchaseBillService
	khataService   KhataService

	client *model.Party
	vendor *model.Party
	widget *model.Item
}

func TestDocumentWorkflow(t *testing.T) {
	suite.Run(t, new(DocumentWorkflowSuite))
}

func (s *DocumentWorkflowSuite) SetupTest() {
	s.ctx = context.Background()
	s.parties = newFakePartyRepo()
	s.items = newFakeItemRepo()
	s.khata = &fakeKhataRepo{}
	s.payments = &fakePaymentRepo{}
	s.audit = &fakeAuditRepo{}
	s.invoices = newFakeInvoiceRepo()
	s.orders = newFakeOrderRepo()
	s.bills = newFakePurchaseBillRepo()
	s.published = &recordingPublisher{}

	dispatcher := events.NewDispatcher(s.published)
	tx := fakeTxManager{}
	rates := fixedRates{rate: dec("18")}
	itemService := NewItemService(s.items, rates, s.audit, tx, dispatcher)
	s.khataService = NewKhataService(s.khata, s.parties, s.audit, tx, newMemBalanceCache(), dispatcher)

	deps := DocumentDeps{
		TxManager:  tx,
		Parties:    s.parties,
		Items:      s.items,
		Payments:   s.payments,
		Audit:      s.audit,
		Rates:      rates,
		Stock:      itemService,
		Ledger:     s.khataService,
		Dispatcher: dispatcher,
		Tolerance:  totals.DefaultTolerance,
	}
	s.invoiceService = NewInvoiceService(s.invoices, s.orders, deps, "INV")
	s.orderService = NewOrderService(s.orders, s.invoiceService, deps, "ORD")
	s.billService = NewPurchaseBillService(s.bills, deps, "PB")

	s.client = s.parties.add(model.Party{Name: "Sharma Traders", Type: model.PartyTypeClient, IsActive: true})
	s.vendor = s.parties.add(model.Party{Name: "Gupta Wholesale", Type: model.PartyTypeVendor, IsActive: true})
	s.widget = s.items.add(model.Item{
		SKU:            "WID-1",
		Name:           "Widget",
		HSNCode:        "8471",
		SalePrice:      dec("100"),
		PurchasePrice:  dec("60"),
		TaxRatePercent: dec("18"),
		CurrentStock:   dec("10"),
	})
}

func (s *DocumentWorkflowSuite) widgetLine(qty string) LineRequest {
	return LineRequest{ItemID: s.widget.ID.String(), Quantity: totals.N(dec(qty))}
}

func (s *DocumentWorkflowSuite) requireStatus(err error, code int) {
	s.Require().Error(err)
	appErr := apperror.GetAppError(err)
	s.Require().NotNil(appErr, "expected an AppError, got %v", err)
	s.Equal(code, appErr.Code)
}

func (s *DocumentWorkflowSuite) balance(partyID string) string {
	res, err := s.khataService.Balance(s.ctx, partyID)
	s.Require().NoError(err)
	return res.Balance
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_ComputesTotalsMovesStockAndPostsDebit() {
	res, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("3")},
	})
	s.Require().NoError(err)

	// 3 x 100 at 18%: 300 + 54.
	s.Equal("300.00", res.Totals.SubTotal)
	s.Equal("27.00", res.Totals.CGSTAmount)
	s.Equal("27.00", res.Totals.SGSTAmount)
	s.Equal("354.00", res.Totals.TotalAmount)
	s.Equal(model.PaymentStatusUnpaid, res.Status)
	s.Require().NotNil(res.BalanceDue)
	s.Equal("354.00", *res.BalanceDue)
	s.Contains(res.Number, "INV-")
	s.Empty(res.Mismatches)

	s.True(dec("7").Equal(s.items.stock(s.widget.ID)))
	s.Equal("354.00", s.balance(s.client.ID.String()))
	s.Contains(s.published.types(), events.DocumentCreated)
	s.Contains(s.published.types(), events.StockChanged)
	s.Contains(s.audit.actions(), model.ActionCreateInvoice)
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_ReportsSubmittedTotalsMismatch() {
	wrong := totals.N(dec("350"))
	res, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID:   s.client.ID.String(),
		Items:     []LineRequest{s.widgetLine("3")},
		Submitted: &SubmittedTotals{TotalAmount: &wrong},
	})
	s.Require().NoError(err)

	s.Equal("354.00", res.Totals.TotalAmount, "server totals win")
	s.Require().Len(res.Mismatches, 1)
	s.Equal("total_amount", res.Mismatches[0].Field)
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_InsufficientStock() {
	_, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("11")},
	})
	s.requireStatus(err, http.StatusConflict)
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_Validation() {
	neg := totals.N(dec("-1"))
	_, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items: []LineRequest{
			{Description: "Labour", Quantity: totals.N(dec("0")), Rate: &neg},
		},
	})
	s.requireStatus(err, http.StatusUnprocessableEntity)

	fields := map[string]bool{}
	for _, fe := range apperror.GetAppError(err).Errors {
		fields[fe.Field] = true
	}
	s.True(fields["items[0].quantity"])
	s.True(fields["items[0].rate"])
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_DiscountBeyondSubtotal() {
	_, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID:  s.client.ID.String(),
		Discount: totals.N(dec("1000")),
		Items:    []LineRequest{s.widgetLine("1")},
	})
	s.requireStatus(err, http.StatusUnprocessableEntity)
}

func (s *DocumentWorkflowSuite) TestCreateInvoice_RejectsVendorAndInactiveParty() {
	_, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.vendor.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.requireStatus(err, http.StatusUnprocessableEntity)

	inactive := s.parties.add(model.Party{Name: "Closed Co", Type: model.PartyTypeClient})
	_, err = s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: inactive.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.requireStatus(err, http.StatusConflict)
}

func (s *DocumentWorkflowSuite) TestRecordPayment_DrivesStatusAndCreditsClient() {
	inv, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.Require().NoError(err)
	s.Equal("118.00", inv.Totals.TotalAmount)

	_, err = s.invoiceService.RecordPayment(s.ctx, "", inv.ID, PaymentRequest{Amount: "200"})
	s.requireStatus(err, http.StatusUnprocessableEntity)

	pay, err := s.invoiceService.RecordPayment(s.ctx, "", inv.ID, PaymentRequest{Amount: "18", Method: "UPI"})
	s.Require().NoError(err)
	s.Equal("UPI", pay.Method)

	got, err := s.invoiceService.GetInvoice(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentStatusPartial, got.Status)
	s.Equal("100.00", *got.BalanceDue)
	s.Equal("100.00", s.balance(s.client.ID.String()))

	_, err = s.invoiceService.RecordPayment(s.ctx, "", inv.ID, PaymentRequest{Amount: "100"})
	s.Require().NoError(err)
	got, err = s.invoiceService.GetInvoice(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentStatusPaid, got.Status)
	s.Equal("0.00", s.balance(s.client.ID.String()))

	payments, err := s.invoiceService.ListPayments(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Len(payments, 2)

	// Paid invoices are frozen.
	err = s.invoiceService.DeleteInvoice(s.ctx, "", inv.ID)
	s.requireStatus(err, http.StatusConflict)
	_, err = s.invoiceService.UpdateInvoice(s.ctx, "", inv.ID, DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.requireStatus(err, http.StatusConflict)
}

func (s *DocumentWorkflowSuite) TestUpdateInvoice_ReappliesStockAndLedger() {
	inv, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("2")},
	})
	s.Require().NoError(err)
	s.True(dec("8").Equal(s.items.stock(s.widget.ID)))

	updated, err := s.invoiceService.UpdateInvoice(s.ctx, "", inv.ID, DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("5")},
	})
	s.Require().NoError(err)
	s.Equal("590.00", updated.Totals.TotalAmount)
	s.Equal(inv.Number, updated.Number)

	s.True(dec("5").Equal(s.items.stock(s.widget.ID)))
	s.Len(s.khata.byReference(model.RefInvoice, s.invoiceID(inv)), 1)
	s.Equal("590.00", s.balance(s.client.ID.String()))
}

func (s *DocumentWorkflowSuite) TestDeleteInvoice_ReversesStockAndLedger() {
	inv, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("4")},
	})
	s.Require().NoError(err)

	s.Require().NoError(s.invoiceService.DeleteInvoice(s.ctx, "", inv.ID))

	s.True(dec("10").Equal(s.items.stock(s.widget.ID)))
	s.Empty(s.khata.byReference(model.RefInvoice, s.invoiceID(inv)))
	s.Equal("0.00", s.balance(s.client.ID.String()))
	s.Equal(0, s.invoices.count())
	s.Contains(s.published.types(), events.DocumentDeleted)

	_, err = s.invoiceService.GetInvoice(s.ctx, inv.ID)
	s.requireStatus(err, http.StatusNotFound)
}

func (s *DocumentWorkflowSuite) TestPurchaseBill_AddsStockAndCreditsVendor() {
	bill, err := s.billService.CreateBill(s.ctx, "", PurchaseBillRequest{
		DocumentRequest: DocumentRequest{
			PartyID: s.vendor.ID.String(),
			Items:   []LineRequest{s.widgetLine("10")},
		},
		VendorBillNo: "GW/778",
	})
	s.Require().NoError(err)

	// Purchase price 60 x 10 at 18%.
	s.Equal("600.00", bill.Totals.SubTotal)
	s.Equal("708.00", bill.Totals.TotalAmount)
	s.Equal("GW/778", bill.VendorBillNo)
	s.True(dec("20").Equal(s.items.stock(s.widget.ID)))
	s.Equal("-708.00", s.balance(s.vendor.ID.String()), "we owe the vendor")

	_, err = s.billService.RecordPayment(s.ctx, "", bill.ID, PaymentRequest{Amount: "708", Method: "BANK"})
	s.Require().NoError(err)
	got, err := s.billService.GetBill(s.ctx, bill.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentStatusPaid, got.Status)
	s.Equal("0.00", s.balance(s.vendor.ID.String()))
}

func (s *DocumentWorkflowSuite) TestDeletePurchaseBill_FailsWhenStockAlreadySold() {
	bill, err := s.billService.CreateBill(s.ctx, "", PurchaseBillRequest{
		DocumentRequest: DocumentRequest{
			PartyID: s.vendor.ID.String(),
			Items:   []LineRequest{s.widgetLine("5")},
		},
	})
	s.Require().NoError(err)

	_, err = s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("12")},
	})
	s.Require().NoError(err)

	err = s.billService.DeleteBill(s.ctx, "", bill.ID)
	s.requireStatus(err, http.StatusConflict)
}

func (s *DocumentWorkflowSuite) TestPurchaseBill_RejectsClientOnlyParty() {
	_, err := s.billService.CreateBill(s.ctx, "", PurchaseBillRequest{
		DocumentRequest: DocumentRequest{
			PartyID: s.client.ID.String(),
			Items:   []LineRequest{s.widgetLine("1")},
		},
	})
	s.requireStatus(err, http.StatusUnprocessableEntity)
}

func (s *DocumentWorkflowSuite) TestOrder_HasNoStockOrLedgerEffect() {
	order, err := s.orderService.CreateOrder(s.ctx, "", DocumentRequest{
		PartyID:  s.client.ID.String(),
		Discount: totals.N(dec("50")),
		Items:    []LineRequest{s.widgetLine("20")},
	})
	s.Require().NoError(err)
	s.Equal(model.OrderStatusOpen, order.Status)
	s.Nil(order.BalanceDue)

	s.True(dec("10").Equal(s.items.stock(s.widget.ID)), "orders may exceed stock")
	s.Equal("0.00", s.balance(s.client.ID.String()))
}

func (s *DocumentWorkflowSuite) TestConvertOrder_CreatesInvoiceWithOrderTotals() {
	order, err := s.orderService.CreateOrder(s.ctx, "", DocumentRequest{
		PartyID:  s.client.ID.String(),
		Discount: totals.N(dec("50")),
		Notes:    "deliver friday",
		Items:    []LineRequest{s.widgetLine("2")},
	})
	s.Require().NoError(err)

	// Catalogue prices change after the order was taken.
	s.widget.SalePrice = dec("150")
	s.Require().NoError(s.items.Update(s.ctx, s.widget))

	inv, err := s.orderService.ConvertToInvoice(s.ctx, "", order.ID, ConvertOrderRequest{})
	s.Require().NoError(err)
	s.Equal(order.Totals, inv.Totals, "conversion keeps the ordered rates")
	s.Equal(order.ID, inv.OrderID)
	s.Equal("deliver friday", inv.Notes)
	s.True(dec("8").Equal(s.items.stock(s.widget.ID)))

	converted, err := s.orderService.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusConverted, converted.Status)
	s.Equal(inv.ID, converted.InvoiceID)

	_, err = s.orderService.ConvertToInvoice(s.ctx, "", order.ID, ConvertOrderRequest{})
	s.requireStatus(err, http.StatusConflict)
	err = s.orderService.DeleteOrder(s.ctx, "", order.ID)
	s.requireStatus(err, http.StatusConflict)

	// Deleting the invoice reopens the order.
	s.Require().NoError(s.invoiceService.DeleteInvoice(s.ctx, "", inv.ID))
	reopened, err := s.orderService.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusOpen, reopened.Status)
	s.Empty(reopened.InvoiceID)
	s.Contains(s.audit.actions(), model.ActionConvertOrder)
}

func (s *DocumentWorkflowSuite) TestNumbering_IsSequentialPerPrefix() {
	first, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.Require().NoError(err)
	second, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
		PartyID: s.client.ID.String(),
		Items:   []LineRequest{s.widgetLine("1")},
	})
	s.Require().NoError(err)

	s.Regexp(`^INV-\d{8}-00001$`, first.Number)
	s.Regexp(`^INV-\d{8}-00002$`, second.Number)
}

func (s *DocumentWorkflowSuite) TestNumbering_NeverReusedAfterDelete() {
	create := func() DocumentResponse {
		res, err := s.invoiceService.CreateInvoice(s.ctx, "", DocumentRequest{
			PartyID: s.client.ID.String(),
			Items:   []LineRequest{s.widgetLine("1")},
		})
		s.Require().NoError(err)
		return res
	}
	first := create()
	second := create()
	s.Require().NoError(s.invoiceService.DeleteInvoice(s.ctx, "", first.ID))

	third := create()
	s.NotEqual(second.Number, third.Number)
	s.Regexp(`^INV-\d{8}-00003$`, third.Number)
}

func (s *DocumentWorkflowSuite) invoiceID(res DocumentResponse) uuid.UUID {
	id, err := parseID(res.ID, "invoice")
	s.Require().NoError(err)
	return id
}
