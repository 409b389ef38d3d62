package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"
	"billbook/pkg/totals"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- Shared document DTOs ---

// DocumentRequest is the editable part of an invoice, order or purchase bill.
type DocumentRequest struct {
	PartyID   string           `json:"party_id" binding:"required"`
	Date      string           `json:"date"`     // YYYY-MM-DD, defaults to today
	DueDate   string           `json:"due_date"` // invoices and purchase bills only
	Notes     string           `json:"notes"`
	Discount  totals.Number    `json:"discount" swaggertype:"string"`
	Items     []LineRequest    `json:"items" binding:"required,min=1"`
	Submitted *SubmittedTotals `json:"submitted_totals"`
}

type PurchaseBillRequest struct {
	DocumentRequest
	VendorBillNo string `json:"vendor_bill_no"`
}

type ConvertOrderRequest struct {
	InvoiceDate string `json:"invoice_date"` // defaults to today
	DueDate     string `json:"due_date"`
	Notes       string `json:"notes"` // defaults to the order notes
}

type PaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	PaidOn    string `json:"paid_on"` // YYYY-MM-DD, defaults to today
	Method    string `json:"method" binding:"omitempty,oneof=CASH BANK UPI CHEQUE CARD"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

// DocumentListQuery filters document listings. Dates are YYYY-MM-DD.
type DocumentListQuery struct {
	PartyID string
	Status  string
	Number  string
	From    string
	To      string
	Page    int
	Limit   int
}

type DocumentResponse struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Number       string             `json:"number"`
	VendorBillNo string             `json:"vendor_bill_no,omitempty"`
	PartyID      string             `json:"party_id"`
	PartyName    string             `json:"party_name"`
	PartyGSTIN   string             `json:"party_gstin,omitempty"`
	Date         string             `json:"date"`
	DueDate      *string            `json:"due_date,omitempty"`
	Status       string             `json:"status"`
	Notes        string             `json:"notes"`
	OrderID      string             `json:"order_id,omitempty"`
	InvoiceID    string             `json:"invoice_id,omitempty"`
	Totals       TotalsResponse     `json:"totals"`
	AmountPaid   *string            `json:"amount_paid,omitempty"`
	BalanceDue   *string            `json:"balance_due,omitempty"`
	Items        []LineResponse     `json:"items"`
	Mismatches   []MismatchResponse `json:"totals_mismatches,omitempty"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

type PaymentResponse struct {
	ID           string `json:"id"`
	DocumentType string `json:"document_type"`
	DocumentID   string `json:"document_id"`
	PartyID      string `json:"party_id"`
	Amount       string `json:"amount"`
	PaidOn       string `json:"paid_on"`
	Method       string `json:"method"`
	Reference    string `json:"reference"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"created_at"`
}

// documentDates holds the parsed date fields of a DocumentRequest.
type documentDates struct {
	date time.Time
	due  *time.Time
}

func parseDocumentDates(date, due string) (documentDates, error) {
	var fieldErrors []apperror.FieldError
	d, fe := parseDate("date", date, today())
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	dueDate, fe := parseOptionalDate("due_date", due)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if dueDate != nil && fe == nil && dueDate.Before(d) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "due_date", Message: "must not be before the document date"})
	}
	if len(fieldErrors) > 0 {
		return documentDates{}, apperror.NewValidationError(fieldErrors)
	}
	return documentDates{date: d, due: dueDate}, nil
}

func (q DocumentListQuery) filter() (repository.DocumentListFilter, error) {
	f := repository.DocumentListFilter{
		Status: strings.ToUpper(q.Status),
		Number: q.Number,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	var fieldErrors []apperror.FieldError
	if q.PartyID != "" {
		id, err := uuid.Parse(q.PartyID)
		if err != nil {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "party_id", Message: "must be a valid id"})
		} else {
			f.PartyID = &id
		}
	}
	var fe *apperror.FieldError
	if f.From, fe = parseOptionalDate("from", q.From); fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if f.To, fe = parseOptionalDate("to", q.To); fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		return f, apperror.NewValidationError(fieldErrors)
	}
	return f, nil
}

// --- Shared document plumbing ---

// documentKit bundles what every billing document service needs: party
// checks, line building, stock moves, ledger postings and events.
type documentKit struct {
	txManager  repository.TransactionManager
	parties    repository.PartyRepository
	payments   repository.PaymentRepository
	builder    *lineBuilder
	stock      StockKeeper
	ledger     Ledger
	audit      auditor
	dispatcher *events.Dispatcher
}

// DocumentDeps are the collaborators shared by the document services.
type DocumentDeps struct {
	TxManager  repository.TransactionManager
	Parties    repository.PartyRepository
	Items      repository.ItemRepository
	Payments   repository.PaymentRepository
	Audit      repository.AuditRepository
	Rates      TaxRateResolver
	Stock      StockKeeper
	Ledger     Ledger
	Dispatcher *events.Dispatcher
	Tolerance  decimal.Decimal
}

func (d DocumentDeps) kit() *documentKit {
	return &documentKit{
		txManager:  d.TxManager,
		parties:    d.Parties,
		payments:   d.Payments,
		builder:    newLineBuilder(d.Items, d.Rates, d.Tolerance),
		stock:      d.Stock,
		ledger:     d.Ledger,
		audit:      auditor{repo: d.Audit},
		dispatcher: d.Dispatcher,
	}
}

type partyRole int

const (
	asClient partyRole = iota
	asVendor
)

func (k *documentKit) requireParty(ctx context.Context, rawID string, role partyRole) (*model.Party, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "party_id", Message: "must be a valid id"}})
	}
	party, err := k.parties.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Party")
	}
	if !party.IsActive {
		return nil, apperror.NewConflictError(fmt.Sprintf("party %s is inactive", party.Name))
	}
	if role == asClient && !party.IsClient() {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "party_id", Message: "party is not a client"}})
	}
	if role == asVendor && !party.IsVendor() {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "party_id", Message: "party is not a vendor"}})
	}
	return party, nil
}

// moveStock applies one movement per catalogue item, locking items in id
// order so that concurrent documents cannot deadlock each other.
func (k *documentKit) moveStock(ctx context.Context, lines []model.Line, direction, refType string, refID uuid.UUID) error {
	qty := map[uuid.UUID]decimal.Decimal{}
	for _, l := range lines {
		if l.ItemID == nil {
			continue
		}
		qty[*l.ItemID] = qty[*l.ItemID].Add(l.Quantity)
	}

	ids := lo.Keys(qty)
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	for _, id := range ids {
		if err := k.stock.Move(ctx, id, direction, qty[id], refType, &refID); err != nil {
			return err
		}
	}
	return nil
}

// post writes the document's own ledger entry. Zero totals post nothing.
func (k *documentKit) post(ctx context.Context, userID string, partyID uuid.UUID, entryType string, amount decimal.Decimal, day time.Time, refType string, refID uuid.UUID, description string) error {
	if !amount.IsPositive() {
		return nil
	}
	return k.ledger.Post(ctx, &model.KhataEntry{
		PartyID:       partyID,
		EntryType:     entryType,
		Amount:        amount,
		EntryDate:     day,
		Description:   description,
		ReferenceType: refType,
		ReferenceID:   &refID,
		CreatedBy:     actorID(userID),
	})
}

// pay validates and records a payment against a document with the given
// outstanding balance, posting entryType to the ledger. It returns the payment.
func (k *documentKit) pay(ctx context.Context, userID, docType string, docID, partyID uuid.UUID, number string, outstanding decimal.Decimal, entryType string, req PaymentRequest) (*model.Payment, error) {
	var fieldErrors []apperror.FieldError
	amount := decimalField(&fieldErrors, "amount", req.Amount).Round(2)
	if len(fieldErrors) == 0 && !amount.IsPositive() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	paidOn, fe := parseDate("paid_on", req.PaidOn, today())
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}
	if amount.GreaterThan(outstanding) {
		return nil, apperror.NewValidationError([]apperror.FieldError{{
			Field:   "amount",
			Message: "exceeds the balance due of " + money(outstanding),
		}})
	}

	method := req.Method
	if method == "" {
		method = "CASH"
	}
	payment := &model.Payment{
		DocumentType: docType,
		DocumentID:   docID,
		PartyID:      partyID,
		Amount:       amount,
		PaidOn:       paidOn,
		Method:       method,
		Reference:    req.Reference,
		Notes:        req.Notes,
	}
	if err := k.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if err := k.post(ctx, userID, partyID, entryType, amount, paidOn, model.RefPayment, payment.ID,
		fmt.Sprintf("Payment %s against %s", method, number)); err != nil {
		return nil, err
	}
	return payment, nil
}

func (k *documentKit) listPayments(ctx context.Context, docType string, docID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := k.payments.ListByDocument(ctx, docType, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return lo.Map(payments, func(p model.Payment, _ int) PaymentResponse { return toPaymentResponse(p) }), nil
}

// publish dispatches a document event once the surrounding transaction commits.
func (k *documentKit) publish(ctx context.Context, eventType events.Type, doc DocumentResponse) {
	repository.AfterCommit(ctx, func() {
		k.dispatcher.Dispatch(context.WithoutCancel(ctx), eventType, doc.ID, doc)
	})
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID.String(),
		DocumentType: p.DocumentType,
		DocumentID:   p.DocumentID.String(),
		PartyID:      p.PartyID.String(),
		Amount:       money(p.Amount),
		PaidOn:       formatDate(p.PaidOn),
		Method:       p.Method,
		Reference:    p.Reference,
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt.Format(dateTimeLayout),
	}
}

// documentHeader fills the fields every document response shares.
func documentHeader(docType string, id uuid.UUID, number string, party *model.Party, partyID uuid.UUID, date time.Time, status, notes string, t model.Totals, createdAt, updatedAt time.Time) DocumentResponse {
	res := DocumentResponse{
		ID:        id.String(),
		Type:      docType,
		Number:    number,
		PartyID:   partyID.String(),
		Date:      formatDate(date),
		Status:    status,
		Notes:     notes,
		Totals:    toTotalsResponse(t),
		CreatedAt: createdAt.Format(dateTimeLayout),
		UpdatedAt: updatedAt.Format(dateTimeLayout),
	}
	if party != nil {
		res.PartyName = party.Name
		res.PartyGSTIN = party.GSTIN
	}
	return res
}

func withPayments(res DocumentResponse, total, paid decimal.Decimal) DocumentResponse {
	paidStr := money(paid)
	dueStr := money(total.Sub(paid))
	res.AmountPaid = &paidStr
	res.BalanceDue = &dueStr
	return res
}

// lineRequestsFrom turns stored lines back into explicit requests, pinning
// rate and tax so that recomputation reproduces the stored totals.
func lineRequestsFrom(lines []model.Line) []LineRequest {
	return lo.Map(lines, func(l model.Line, _ int) LineRequest {
		rate := totals.N(l.Rate)
		tax := totals.N(l.TaxRatePercent)
		return LineRequest{
			ItemID:         optionalID(l.ItemID),
			Description:    l.Description,
			HSNCode:        l.HSNCode,
			Quantity:       totals.N(l.Quantity),
			Rate:           &rate,
			TaxRatePercent: &tax,
		}
	})
}
