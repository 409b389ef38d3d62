package service

import (
	"context"
	"fmt"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"
	"billbook/pkg/totals"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req DocumentRequest) (DocumentResponse, error)
	GetOrder(ctx context.Context, id string) (DocumentResponse, error)
	ListOrders(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error)
	UpdateOrder(ctx context.Context, userID, id string, req DocumentRequest) (DocumentResponse, error)
	DeleteOrder(ctx context.Context, userID, id string) error
	ConvertToInvoice(ctx context.Context, userID, id string, req ConvertOrderRequest) (DocumentResponse, error)
}

// orderService keeps sales orders. Orders move no stock and post nothing to
// the ledger until they are converted into an invoice.
type orderService struct {
	repo     repository.OrderRepository
	invoices invoiceCreator
	kit      *documentKit
	prefix   string
}

// invoiceCreator raises an invoice inside the caller's transaction.
type invoiceCreator interface {
	create(ctx context.Context, userID string, req DocumentRequest, orderID *uuid.UUID) (DocumentResponse, error)
}

// NewOrderService needs the invoice service returned by NewInvoiceService.
func NewOrderService(repo repository.OrderRepository, invoices InvoiceService, deps DocumentDeps, prefix string) OrderService {
	creator, ok := invoices.(invoiceCreator)
	if !ok {
		panic("service: order conversion requires the invoice service from NewInvoiceService")
	}
	return &orderService{repo: repo, invoices: creator, kit: deps.kit(), prefix: prefix}
}

func (s *orderService) buildLines(ctx context.Context, req DocumentRequest) (documentDates, *builtLines, error) {
	dates, err := parseDocumentDates(req.Date, "")
	if err != nil {
		return documentDates{}, nil, err
	}
	built, err := s.kit.builder.build(ctx, lineBuildInput{
		Source:    "order",
		Lines:     req.Items,
		Discount:  req.Discount.Decimal,
		Submitted: req.Submitted,
		Day:       dates.date,
		Price:     salePrice,
	})
	if err != nil {
		return documentDates{}, nil, err
	}
	return dates, built, nil
}

func (s *orderService) CreateOrder(ctx context.Context, userID string, req DocumentRequest) (DocumentResponse, error) {
	dates, built, err := s.buildLines(ctx, req)
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

		order := &model.Order{
			OrderNo:   number,
			PartyID:   party.ID,
			OrderDate: dates.date,
			Status:    model.OrderStatusOpen,
			Notes:     req.Notes,
			Totals:    built.Totals,
			Items:     lo.Map(built.Lines, func(l model.Line, _ int) model.OrderItem { return model.OrderItem{Line: l} }),
			CreatedBy: actorID(userID),
		}
		if err := s.repo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		order.Party = party
		res = toOrderResponse(*order)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentCreated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionCreateOrder, order.ID.String(), order.OrderNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (DocumentResponse, error) {
	orderID, err := parseID(id, "order")
	if err != nil {
		return DocumentResponse{}, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return DocumentResponse{}, notFound(err, "Order")
	}
	return toOrderResponse(*order), nil
}

func (s *orderService) ListOrders(ctx context.Context, query DocumentListQuery) ([]DocumentResponse, int64, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return lo.Map(orders, func(o model.Order, _ int) DocumentResponse { return toOrderResponse(o) }), total, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, userID, id string, req DocumentRequest) (DocumentResponse, error) {
	orderID, err := parseID(id, "order")
	if err != nil {
		return DocumentResponse{}, err
	}
	dates, built, err := s.buildLines(ctx, req)
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return notFound(err, "Order")
		}
		if order.Status != model.OrderStatusOpen {
			return apperror.NewConflictError("only open orders can be edited")
		}
		party, err := s.kit.requireParty(txCtx, req.PartyID, asClient)
		if err != nil {
			return err
		}

		items := lo.Map(built.Lines, func(l model.Line, _ int) model.OrderItem {
			return model.OrderItem{OrderID: order.ID, Line: l}
		})
		if err := s.repo.ReplaceLines(txCtx, order.ID, items); err != nil {
			return fmt.Errorf("failed to replace order lines: %w", err)
		}

		order.PartyID = party.ID
		order.Party = party
		order.OrderDate = dates.date
		order.Notes = req.Notes
		order.Totals = built.Totals
		order.Items = items
		if err := s.repo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		res = toOrderResponse(*order)
		res.Mismatches = toMismatchResponses(built.Mismatches)
		s.kit.publish(txCtx, events.DocumentUpdated, res)
		return s.kit.audit.log(txCtx, userID, model.ActionUpdateOrder, order.ID.String(), order.OrderNo, res.Totals)
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, userID, id string) error {
	orderID, err := parseID(id, "order")
	if err != nil {
		return err
	}

	return s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return notFound(err, "Order")
		}
		if order.Status == model.OrderStatusConverted {
			return apperror.NewConflictError("converted orders cannot be deleted; delete the invoice first")
		}
		if err := s.repo.Delete(txCtx, order.ID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		res := toOrderResponse(*order)
		s.kit.publish(txCtx, events.DocumentDeleted, res)
		return s.kit.audit.log(txCtx, userID, model.ActionDeleteOrder, order.ID.String(), order.OrderNo, res.Totals)
	})
}

// ConvertToInvoice raises an invoice from an open order with the order's
// lines, rates and discount, and marks the order converted. Both happen in
// one transaction.
func (s *orderService) ConvertToInvoice(ctx context.Context, userID, id string, req ConvertOrderRequest) (DocumentResponse, error) {
	orderID, err := parseID(id, "order")
	if err != nil {
		return DocumentResponse{}, err
	}

	var res DocumentResponse
	err = s.kit.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return notFound(err, "Order")
		}
		if order.Status != model.OrderStatusOpen {
			return apperror.NewConflictError(fmt.Sprintf("order %s is %s", order.OrderNo, order.Status))
		}

		notes := req.Notes
		if notes == "" {
			notes = order.Notes
		}
		lines := lo.Map(order.Items, func(it model.OrderItem, _ int) model.Line { return it.Line })
		res, err = s.invoices.create(txCtx, userID, DocumentRequest{
			PartyID:  order.PartyID.String(),
			Date:     req.InvoiceDate,
			DueDate:  req.DueDate,
			Notes:    notes,
			Discount: totals.N(order.Totals.Discount),
			Items:    lineRequestsFrom(lines),
		}, &order.ID)
		if err != nil {
			return err
		}

		invoiceID := uuid.MustParse(res.ID)
		order.Status = model.OrderStatusConverted
		order.InvoiceID = &invoiceID
		if err := s.repo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return s.kit.audit.log(txCtx, userID, model.ActionConvertOrder, order.ID.String(), order.OrderNo,
			map[string]string{"invoice_id": res.ID, "invoice_no": res.Number})
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return res, nil
}

func toOrderResponse(o model.Order) DocumentResponse {
	res := documentHeader(model.DocOrder, o.ID, o.OrderNo, o.Party, o.PartyID, o.OrderDate,
		o.Status, o.Notes, o.Totals, o.CreatedAt, o.UpdatedAt)
	res.InvoiceID = optionalID(o.InvoiceID)
	res.Items = lo.Map(o.Items, func(it model.OrderItem, _ int) LineResponse { return toLineResponse(it.ID, it.Line) })
	return res
}
