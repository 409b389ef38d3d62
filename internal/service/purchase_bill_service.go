package service

import (
	"context"
	"fmt"
	"strings"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/samber/lo"
)

type PurchaseBillService interface {
	CreateBill(ctx context.Context, userID string, req PurchaseBillRequest) (DocumentResponse, error)
	GetBill(ctx context.Context, id string) (DocumentResponse, error)
	ListBills(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error)
	UpdateBill(ctx context.Context, userID, id string, req PurchaseBillRequest) (DocumentResponse, error)
	DeleteBill(ctx context.Context, userID, id string) error
	RecordPayment(ctx context.Context, userID, id string, req PaymentRequest) (PaymentResponse, error)
	ListPayments(ctx context.Context, id string) ([]PaymentResponse, error)
}

// purchaseBillService mirrors invoices from the buying side: stock comes in,
// the vendor is credited and payments debit them back.
type purchaseBillService struct {
	repo   repository.PurchaseBillRepository
	kit    *documentKit
	prefix string
}

func NewPurchaseBillService(repo repository.PurchaseBillRepository, deps DocumentDeps, prefix string) PurchaseBillService {
	return &purchaseBillService{repo: repo, kit: deps.kit(), prefix: prefix}
}

func (s *purchaseBillService) buildLines(ctx context.Context, req PurchaseBillRequest) (documentDates, *builtLines, error) {
	dates, err := parseDocumentDates(req.Date, req.DueDate)
	if err != nil {
		return documentDates{}, nil, err
	}
	built, err := s.kit.builder.build(ctx, lineBuildInput{
		Source:    "purchase_bill",
		Lines:     req.Items,
		Discount:  req.Discount.Decimal,
		Submitted: req.Submitted,
		Day:       dates.date,
		Price:     purchasePrice,
	})
	if err != nil {
		return documentDates{}, nil, err
	}
	return dates, built, nil
}

func (s *purchaseBillService) CreateBill(ctx context.Context, userID string, req PurchaseBillRequest) (DocumentResponse, error) {
	dates, built, err := s.buildLines(ctx, req)
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		party, err := s.kit.requireParty(txCtx, req.PartyID, asVendor)
		if err != nil {
			return err
		}
		number, err := nextNumber(txCtx, s.prefix, s.repo.LastNumber)
		if err != nil {
			return err
		}

		bill := &model.PurchaseBill{
			BillNo:       number,
			VendorBillNo: strings.TrimSpace(req.VendorBillNo),
			PartyID:      party.ID,
			BillDate:     dates.date,
			DueDate:      dates.due,
			Status:       model.PaymentStatusUnpaid,
			Notes:        req.Notes,
			Totals:       built.Totals,
			Items:        lo.Map(built.Lines, func(l model.Line, _ int) model.PurchaseBillItem { return model.PurchaseBillItem{Line: l} }),
			CreatedBy:    actorID(userID),
		}
		if err := s.repo.Create(txCtx, bill); err != nil {
			return fmt.Errorf("failed to create purchase bill: %w", err)
		}
		if err := s.kit.moveStock(txCtx, built.Lines, model.StockIn, model.DocPurchaseBill, bill.ID); err != nil {
			return err
		}
		if err := s.kit.post(txCtx, userID, party.ID, model.EntryCredit, bill.Totals.TotalAmount, bill.BillDate,
			model.RefPurchaseBill, bill.ID, billDescription(bill)); err != nil {
			return err
		}

		bill.Party = party
		res = toPurchaseBillResponse(*bill)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentCreated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionCreatePurchaseBill, bill.ID.String(), bill.BillNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func (s *purchaseBillService) GetBill(ctx context.Context, id string) (DocumentResponse, error) {
	billID, err := parseID(id, "purchase bill")
	if err != nil {
		return DocumentResponse{}, err
	}
	bill, err := s.repo.FindByID(ctx, billID)
	if err != nil {
		return DocumentResponse{}, notFound(err, "Purchase bill")
	}
	return toPurchaseBillResponse(*bill), nil
}

func (s *purchaseBillService) ListBills(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, 0, err
	}
	bills, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchase bills: %w", err)
	}
	return lo.Map(bills, func(b model.PurchaseBill, _ int) DocumentResponse { return toPurchaseBillResponse(b) }), total, nil
}

func (s *purchaseBillService) UpdateBill(ctx context.Context, userID, id string, req PurchaseBillRequest) (DocumentResponse, error) {
	billID, err := parseID(id, "purchase bill")
	if err != nil {
		return DocumentResponse{}, err
	}
	dates, built, err := s.buildLines(ctx, req)
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bill, err := s.repo.FindByIDForUpdate(txCtx, billID)
		if err != nil {
			return notFound(err, "Purchase bill")
		}
		if bill.Status != model.PaymentStatusUnpaid {
			return apperror.NewConflictError("only unpaid purchase bills can be edited")
		}
		party, err := s.kit.requireParty(txCtx, req.PartyID, asVendor)
		if err != nil {
			return err
		}

		// Taking the old stock out first fails if it has already been sold.
		if err := s.kit.moveStock(txCtx, billLines(bill.Items), model.StockOut, model.DocPurchaseBill, bill.ID); err != nil {
			return err
		}
		if err := s.kit.moveStock(txCtx, built.Lines, model.StockIn, model.DocPurchaseBill, bill.ID); err != nil {
			return err
		}
		if err := s.kit.ledger.Unpost(txCtx, bill.PartyID, model.RefPurchaseBill, bill.ID); err != nil {
			return err
		}

		items := lo.Map(built.Lines, func(l model.Line, _ int) model.PurchaseBillItem {
			return model.PurchaseBillItem{PurchaseBillID: bill.ID, Line: l}
		})
		if err := s.repo.ReplaceLines(txCtx, bill.ID, items); err != nil {
			return fmt.Errorf("failed to replace purchase bill lines: %w", err)
		}

		bill.PartyID = party.ID
		bill.Party = party
		bill.VendorBillNo = strings.TrimSpace(req.VendorBillNo)
		bill.BillDate = dates.date
		bill.DueDate = dates.due
		bill.Notes = req.Notes
		bill.Totals = built.Totals
		bill.Items = items
		if err := s.repo.Update(txCtx, bill); err != nil {
			return fmt.Errorf("failed to update purchase bill: %w", err)
		}
		if err := s.kit.post(txCtx, userID, party.ID, model.EntryCredit, bill.Totals.TotalAmount, bill.BillDate,
			model.RefPurchaseBill, bill.ID, billDescription(bill)); err != nil {
			return err
		}

		res = toPurchaseBillResponse(*bill)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentUpdated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionUpdatePurchaseBill, bill.ID.String(), bill.BillNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func (s *purchaseBillService) DeleteBill(ctx context.Context, userID, id string) error {
	billID, err := parseID(id, "purchase bill")
	if err != nil {
		return err
	}

	return s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bill, err := s.repo.FindByIDForUpdate(txCtx, billID)
		if err != nil {
			return notFound(err, "Purchase bill")
		}
		if bill.Status != model.PaymentStatusUnpaid {
			return apperror.NewConflictError("only unpaid purchase bills can be deleted")
		}

		if err := s.kit.moveStock(txCtx, billLines(bill.Items), model.StockOut, model.DocPurchaseBill, bill.ID); err != nil {
			return err
		}
		if err := s.kit.ledger.Unpost(txCtx, bill.PartyID, model.RefPurchaseBill, bill.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, bill.ID); err != nil {
			return fmt.Errorf("failed to delete purchase bill: %w", err)
		}

		res := toPurchaseBillResponse(*bill)
		s.kit.publish(txCtx, events.DocumentDeleted, res)
		return s.kit.audit.log(txCtx, userID, model.ActionDeletePurchaseBill, bill.ID.String(), bill.BillNo, res.Totals)
	})
}

// RecordPayment records money paid to the vendor and debits their account.
func (s *purchaseBillService) RecordPayment(ctx context.Context, userID, id string, req PaymentRequest) (PaymentResponse, error) {
	billID, err := parseID(id, "purchase bill")
	if err != nil {
		return PaymentResponse{}, err
	}

	var res PaymentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bill, err := s.repo.FindByIDForUpdate(txCtx, billID)
		if err != nil {
			return notFound(err, "Purchase bill")
		}

		outstanding := bill.Totals.TotalAmount.Sub(bill.AmountPaid)
		payment, err := s.kit.pay(txCtx, userID, model.DocPurchaseBill, bill.ID, bill.PartyID, bill.BillNo,
			outstanding, model.EntryDebit, req)
		if err != nil {
			return err
		}

		bill.AmountPaid = bill.AmountPaid.Add(payment.Amount)
		bill.Status = model.PaymentStatus(bill.Totals.TotalAmount, bill.AmountPaid)
		if err := s.repo.Update(txCtx, bill); err != nil {
			return fmt.Errorf("failed to update purchase bill: %w", err)
		}

		res = toPaymentResponse(*payment)
		repository.AfterCommit(txCtx, func() {
			s.kit.dispatcher.Dispatch(context.WithoutCancel(ctx), events.PaymentRecorded, res.ID, res)
		})
		return s.kit.audit.log(txCtx, userID, model.ActionRecordPayment, bill.ID.String(), bill.BillNo, res)
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return res, nil
}

func (s *purchaseBillService) ListPayments(ctx context.Context, id string) ([]PaymentResponse, error) {
	billID, err := parseID(id, "purchase bill")
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, billID); err != nil {
		return nil, notFound(err, "Purchase bill")
	}
	return s.kit.listPayments(ctx, model.DocPurchaseBill, billID)
}

func billDescription(b *model.PurchaseBill) string {
	if b.VendorBillNo != "" {
		return fmt.Sprintf("Purchase bill %s (vendor ref %s)", b.BillNo, b.VendorBillNo)
	}
	return "Purchase bill " + b.BillNo
}

func billLines(items []model.PurchaseBillItem) []model.Line {
	return lo.Map(items, func(it model.PurchaseBillItem, _ int) model.Line { return it.Line })
}

func toPurchaseBillResponse(b model.PurchaseBill) DocumentResponse {
	res := documentHeader(model.DocPurchaseBill, b.ID, b.BillNo, b.Party, b.PartyID, b.BillDate,
		b.Status, b.Notes, b.Totals, b.CreatedAt, b.UpdatedAt)
	res.VendorBillNo = b.VendorBillNo
	res.DueDate = formatOptionalDate(b.DueDate)
	res.Items = lo.Map(b.Items, func(it model.PurchaseBillItem, _ int) LineResponse { return toLineResponse(it.ID, it.Line) })
	return withPayments(res, b.Totals.TotalAmount, b.AmountPaid)
}
