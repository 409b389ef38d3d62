package service

import (
	"context"
	"fmt"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req DocumentRequest) (DocumentResponse, error)
	GetInvoice(ctx context.Context, id string) (DocumentResponse, error)
	ListInvoices(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error)
	UpdateInvoice(ctx context.Context, userID, id string, req DocumentRequest) (DocumentResponse, error)
	DeleteInvoice(ctx context.Context, userID, id string) error
	RecordPayment(ctx context.Context, userID, id string, req PaymentRequest) (PaymentResponse, error)
	ListPayments(ctx context.Context, id string) ([]PaymentResponse, error)
}

type invoiceService struct {
	repo   repository.InvoiceRepository
	orders repository.OrderRepository
	kit    *documentKit
	prefix string
}

func NewInvoiceService(repo repository.InvoiceRepository, orders repository.OrderRepository, deps DocumentDeps, prefix string) InvoiceService {
	return &invoiceService{repo: repo, orders: orders, kit: deps.kit(), prefix: prefix}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req DocumentRequest) (DocumentResponse, error) {
	return s.create(ctx, userID, req, nil)
}

// create raises an invoice, optionally on behalf of an order. It joins the
// caller's transaction when there is one.
func (s *invoiceService) create(ctx context.Context, userID string, req DocumentRequest, orderID *uuid.UUID) (DocumentResponse, error) {
	dates, err := parseDocumentDates(req.Date, req.DueDate)
	if err != nil {
		return DocumentResponse{}, err
	}
	built, err := s.kit.builder.build(ctx, lineBuildInput{
		Source:    "invoice",
		Lines:     req.Items,
		Discount:  req.Discount.Decimal,
		Submitted: req.Submitted,
		Day:       dates.date,
		Price:     salePrice,
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		party, err := s.kit.requireParty(txCtx, req.PartyID, asClient)
		if err != nil {
			return err
		}
		number, err := nextNumber(txCtx, s.prefix, s.repo.LastNumber)
		if err != nil {
			return err
		}

		invoice := &model.Invoice{
			InvoiceNo:   number,
			PartyID:     party.ID,
			OrderID:     orderID,
			InvoiceDate: dates.date,
			DueDate:     dates.due,
			Status:      model.PaymentStatusUnpaid,
			Notes:       req.Notes,
			Totals:      built.Totals,
			Items:       lo.Map(built.Lines, func(l model.Line, _ int) model.InvoiceItem { return model.InvoiceItem{Line: l} }),
			CreatedBy:   actorID(userID),
		}
		if err := s.repo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if err := s.kit.moveStock(txCtx, built.Lines, model.StockOut, model.DocInvoice, invoice.ID); err != nil {
			return err
		}
		if err := s.kit.post(txCtx, userID, party.ID, model.EntryDebit, invoice.Totals.TotalAmount, invoice.InvoiceDate,
			model.RefInvoice, invoice.ID, "Invoice "+invoice.InvoiceNo); err != nil {
			return err
		}

		invoice.Party = party
		res = toInvoiceResponse(*invoice)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentCreated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (DocumentResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return DocumentResponse{}, err
	}
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return DocumentResponse{}, notFound(err, "Invoice")
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, 0, err
	}
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	return lo.Map(invoices, func(inv model.Invoice, _ int) DocumentResponse { return toInvoiceResponse(inv) }), total, nil
}

// UpdateInvoice replaces an unpaid invoice's party, dates and lines. Stock and
// the ledger posting are reversed and re-applied.
func (s *invoiceService) UpdateInvoice(ctx context.Context, userID, id string, req DocumentRequest) (DocumentResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return DocumentResponse{}, err
	}
	dates, err := parseDocumentDates(req.Date, req.DueDate)
	if err != nil {
		return DocumentResponse{}, err
	}
	built, err := s.kit.builder.build(ctx, lineBuildInput{
		Source:    "invoice",
		Lines:     req.Items,
		Discount:  req.Discount.Decimal,
		Submitted: req.Submitted,
		Day:       dates.date,
		Price:     salePrice,
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.repo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFound(err, "Invoice")
		}
		if invoice.Status != model.PaymentStatusUnpaid {
			return apperror.NewConflictError("only unpaid invoices can be edited")
		}
		party, err := s.kit.requireParty(txCtx, req.PartyID, asClient)
		if err != nil {
			return err
		}

		if err := s.kit.moveStock(txCtx, invoiceLines(invoice.Items), model.StockIn, model.DocInvoice, invoice.ID); err != nil {
			return err
		}
		if err := s.kit.moveStock(txCtx, built.Lines, model.StockOut, model.DocInvoice, invoice.ID); err != nil {
			return err
		}
		if err := s.kit.ledger.Unpost(txCtx, invoice.PartyID, model.RefInvoice, invoice.ID); err != nil {
			return err
		}

		items := lo.Map(built.Lines, func(l model.Line, _ int) model.InvoiceItem {
			return model.InvoiceItem{InvoiceID: invoice.ID, Line: l}
		})
		if err := s.repo.ReplaceLines(txCtx, invoice.ID, items); err != nil {
			return fmt.Errorf("failed to replace invoice lines: %w", err)
		}

		invoice.PartyID = party.ID
		invoice.Party = party
		invoice.InvoiceDate = dates.date
		invoice.DueDate = dates.due
		invoice.Notes = req.Notes
		invoice.Totals = built.Totals
		invoice.Items = items
		if err := s.repo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		if err := s.kit.post(txCtx, userID, party.ID, model.EntryDebit, invoice.Totals.TotalAmount, invoice.InvoiceDate,
			model.RefInvoice, invoice.ID, "Invoice "+invoice.InvoiceNo); err != nil {
			return err
		}

		res = toInvoiceResponse(*invoice)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentUpdated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionUpdateInvoice, invoice.ID.String(), invoice.InvoiceNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

// DeleteInvoice removes an unpaid invoice, returning its stock, removing its
// ledger posting and reopening the order it was converted from.
func (s *invoiceService) DeleteInvoice(ctx context.Context, userID, id string) error {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return err
	}

	return s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.repo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFound(err, "Invoice")
		}
		if invoice.Status != model.PaymentStatusUnpaid {
			return apperror.NewConflictError("only unpaid invoices can be deleted")
		}

		if err := s.kit.moveStock(txCtx, invoiceLines(invoice.Items), model.StockIn, model.DocInvoice, invoice.ID); err != nil {
			return err
		}
		if err := s.kit.ledger.Unpost(txCtx, invoice.PartyID, model.RefInvoice, invoice.ID); err != nil {
			return err
		}
		if invoice.OrderID != nil {
			if err := s.reopenOrder(txCtx, *invoice.OrderID); err != nil {
				return err
			}
		}
		if err := s.repo.Delete(txCtx, invoice.ID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		res := toInvoiceResponse(*invoice)
		s.kit.publish(txCtx, events.DocumentDeleted, res)
		return s.kit.audit.log(txCtx, userID, model.ActionDeleteInvoice, invoice.ID.String(), invoice.InvoiceNo, res.Totals)
	})
}

func (s *invoiceService) reopenOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return notFound(err, "Order")
	}
	order.Status = model.OrderStatusOpen
	order.InvoiceID = nil
	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to reopen order: %w", err)
	}
	return nil
}

// RecordPayment records money received against an invoice and credits the client.
func (s *invoiceService) RecordPayment(ctx context.Context, userID, id string, req PaymentRequest) (PaymentResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return PaymentResponse{}, err
	}

	var res PaymentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.repo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFound(err, "Invoice")
		}

		outstanding := invoice.Totals.TotalAmount.Sub(invoice.AmountPaid)
		payment, err := s.kit.pay(txCtx, userID, model.DocInvoice, invoice.ID, invoice.PartyID, invoice.InvoiceNo,
			outstanding, model.EntryCredit, req)
		if err != nil {
			return err
		}

		invoice.AmountPaid = invoice.AmountPaid.Add(payment.Amount)
		invoice.Status = model.PaymentStatus(invoice.Totals.TotalAmount, invoice.AmountPaid)
		if err := s.repo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		res = toPaymentResponse(*payment)
		repository.AfterCommit(txCtx, func() {
			s.kit.dispatcher.Dispatch(context.WithoutCancel(ctx), events.PaymentRecorded, res.ID, res)
		})
		return s.kit.audit.log(txCtx, userID, model.ActionRecordPayment, invoice.ID.String(), invoice.InvoiceNo, res)
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return res, nil
}

func (s *invoiceService) ListPayments(ctx context.Context, id string) ([]PaymentResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, invoiceID); err != nil {
		return nil, notFound(err, "Invoice")
	}
	return s.kit.listPayments(ctx, model.DocInvoice, invoiceID)
}

func invoiceLines(items []model.InvoiceItem) []model.Line {
	return lo.Map(items, func(it model.InvoiceItem, _ int) model.Line { return it.Line })
}

func toInvoiceResponse(inv model.Invoice) DocumentResponse {
	res := documentHeader(model.DocInvoice, inv.ID, inv.InvoiceNo, inv.Party, inv.PartyID, inv.InvoiceDate,
		inv.Status, inv.Notes, inv.Totals, inv.CreatedAt, inv.UpdatedAt)
	res.DueDate = formatOptionalDate(inv.DueDate)
	res.OrderID = optionalID(inv.OrderID)
	res.Items = lo.Map(inv.Items, func(it model.InvoiceItem, _ int) LineResponse { return toLineResponse(it.ID, it.Line) })
	return withPayments(res, inv.Totals.TotalAmount, inv.AmountPaid)
}
