package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"billbook/internal/metrics"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/amountwords"
	"billbook/pkg/apperror"
	"billbook/pkg/totals"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs shared by invoices, orders, purchase bills and the preview ---

// LineRequest is one submitted document row. A nil rate or tax rate is filled
// in from the referenced item, and a tax rate with no item from the GST rules.
type LineRequest struct {
	ItemID         string         `json:"item_id"`
	Description    string         `json:"description"`
	HSNCode        string         `json:"hsn_code"`
	Quantity       totals.Number  `json:"quantity" swaggertype:"string"`
	Rate           *totals.Number `json:"rate" swaggertype:"string"`
	TaxRatePercent *totals.Number `json:"tax_rate_percent" swaggertype:"string"`
}

// SubmittedTotals are the totals a client displayed when it submitted the form.
// They are checked, never stored.
type SubmittedTotals struct {
	SubTotal    *totals.Number `json:"sub_total" swaggertype:"string"`
	CGSTAmount  *totals.Number `json:"cgst_amount" swaggertype:"string"`
	SGSTAmount  *totals.Number `json:"sgst_amount" swaggertype:"string"`
	RoundOff    *totals.Number `json:"round_off" swaggertype:"string"`
	TotalAmount *totals.Number `json:"total_amount" swaggertype:"string"`
}

func (s *SubmittedTotals) decimals() totals.Submitted {
	if s == nil {
		return totals.Submitted{}
	}
	unwrap := func(n *totals.Number) *decimal.Decimal {
		if n == nil {
			return nil
		}
		return &n.Decimal
	}
	return totals.Submitted{
		SubTotal:    unwrap(s.SubTotal),
		CGSTAmount:  unwrap(s.CGSTAmount),
		SGSTAmount:  unwrap(s.SGSTAmount),
		RoundOff:    unwrap(s.RoundOff),
		TotalAmount: unwrap(s.TotalAmount),
	}
}

type TotalsResponse struct {
	SubTotal            string `json:"sub_total"`
	Discount            string `json:"discount"`
	DiscountedTotal     string `json:"discounted_total"`
	TotalTax            string `json:"total_tax"`
	TaxRate             string `json:"tax_rate"`
	CGSTAmount          string `json:"cgst_amount"`
	SGSTAmount          string `json:"sgst_amount"`
	IGSTAmount          string `json:"igst_amount"`
	TotalBeforeRoundOff string `json:"total_before_round_off"`
	RoundOff            string `json:"round_off"`
	TotalAmount         string `json:"total_amount"`
	AmountInWords       string `json:"amount_in_words"`
}

type LineResponse struct {
	ID             string `json:"id,omitempty"`
	ItemID         string `json:"item_id,omitempty"`
	Description    string `json:"description"`
	HSNCode        string `json:"hsn_code"`
	Quantity       string `json:"quantity"`
	Rate           string `json:"rate"`
	TaxRatePercent string `json:"tax_rate_percent"`
	LineAmount     string `json:"line_amount"`
	LineTax        string `json:"line_tax"`
}

type MismatchResponse struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func toTotalsResponse(t model.Totals) TotalsResponse {
	taxRate := totals.Result{SubTotal: t.SubTotal, TotalTax: t.TotalTax}.TaxRate()
	return TotalsResponse{
		SubTotal:            money(t.SubTotal),
		Discount:            money(t.Discount),
		DiscountedTotal:     money(t.SubTotal.Sub(t.Discount)),
		TotalTax:            money(t.TotalTax),
		TaxRate:             money(taxRate),
		CGSTAmount:          money(t.CGSTAmount),
		SGSTAmount:          money(t.SGSTAmount),
		IGSTAmount:          money(t.IGSTAmount),
		TotalBeforeRoundOff: money(t.SubTotal.Sub(t.Discount).Add(t.CGSTAmount).Add(t.SGSTAmount).Add(t.IGSTAmount)),
		RoundOff:            money(t.RoundOff),
		TotalAmount:         money(t.TotalAmount),
		AmountInWords:       amountwords.Rupees(t.TotalAmount),
	}
}

func toLineResponse(id uuid.UUID, l model.Line) LineResponse {
	res := LineResponse{
		ItemID:         optionalID(l.ItemID),
		Description:    l.Description,
		HSNCode:        l.HSNCode,
		Quantity:       l.Quantity.String(),
		Rate:           money(l.Rate),
		TaxRatePercent: money(l.TaxRatePercent),
		LineAmount:     money(l.LineAmount),
		LineTax:        money(l.LineTax),
	}
	if id != uuid.Nil {
		res.ID = id.String()
	}
	return res
}

func toMismatchResponses(mismatches []totals.Mismatch) []MismatchResponse {
	return lo.Map(mismatches, func(m totals.Mismatch, _ int) MismatchResponse {
		return MismatchResponse{Field: m.Field, Expected: money(m.Expected), Actual: money(m.Actual)}
	})
}

// --- Line building ---

type priceKind int

const (
	salePrice priceKind = iota
	purchasePrice
)

func (k priceKind) of(item model.Item) decimal.Decimal {
	if k == purchasePrice {
		return item.PurchasePrice
	}
	return item.SalePrice
}

// TaxRateResolver supplies the GST rate for an HSN code on a given day.
type TaxRateResolver interface {
	RateFor(ctx context.Context, hsnCode string, day time.Time) (decimal.Decimal, error)
}

// builtLines is a validated set of document lines with the totals computed from them.
type builtLines struct {
	Lines      []model.Line
	Totals     model.Totals
	Mismatches []totals.Mismatch
}

type lineBuildInput struct {
	Source    string
	Lines     []LineRequest
	Discount  decimal.Decimal
	Submitted *SubmittedTotals
	Day       time.Time
	Price     priceKind
}

// lineBuilder turns submitted rows into persisted lines. Totals always come
// from the totals engine; submitted totals are only compared against it.
type lineBuilder struct {
	items     repository.ItemRepository
	rates     TaxRateResolver
	tolerance decimal.Decimal
}

func newLineBuilder(items repository.ItemRepository, rates TaxRateResolver, tolerance decimal.Decimal) *lineBuilder {
	if tolerance.IsNegative() || tolerance.IsZero() {
		tolerance = totals.DefaultTolerance
	}
	return &lineBuilder{items: items, rates: rates, tolerance: tolerance}
}

// build validates every row, collecting field errors, and computes totals.
func (b *lineBuilder) build(ctx context.Context, in lineBuildInput) (*builtLines, error) {
	var fieldErrors []apperror.FieldError
	fail := func(field, msg string) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: field, Message: msg})
	}

	if len(in.Lines) == 0 {
		fail("items", "at least one line item is required")
	}
	if in.Discount.IsNegative() {
		fail("discount", "must not be negative")
	}

	catalogue, err := b.lookupItems(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	lines := make([]model.Line, 0, len(in.Lines))
	for i, req := range in.Lines {
		prefix := fmt.Sprintf("items[%d].", i)
		line := model.Line{
			Description: strings.TrimSpace(req.Description),
			HSNCode:     strings.TrimSpace(req.HSNCode),
			Quantity:    req.Quantity.Decimal,
			Position:    i,
		}

		var item *model.Item
		if req.ItemID != "" {
			id, err := uuid.Parse(req.ItemID)
			if err != nil {
				fail(prefix+"item_id", "must be a valid id")
			} else if found, ok := catalogue[id]; !ok {
				fail(prefix+"item_id", "item not found")
			} else {
				item = &found
				line.ItemID = &found.ID
			}
		}

		if item != nil {
			if line.Description == "" {
				line.Description = item.Name
			}
			if line.HSNCode == "" {
				line.HSNCode = item.HSNCode
			}
		}
		if line.Description == "" {
			fail(prefix+"description", "is required")
		}

		if !line.Quantity.IsPositive() {
			fail(prefix+"quantity", "must be greater than zero")
		}

		switch {
		case req.Rate != nil:
			line.Rate = req.Rate.Decimal
		case item != nil:
			line.Rate = in.Price.of(*item)
		default:
			fail(prefix+"rate", "is required")
		}
		if line.Rate.IsNegative() {
			fail(prefix+"rate", "must not be negative")
		}

		switch {
		case req.TaxRatePercent != nil:
			line.TaxRatePercent = req.TaxRatePercent.Decimal
		case item != nil:
			line.TaxRatePercent = item.TaxRatePercent
		default:
			rate, err := b.rates.RateFor(ctx, line.HSNCode, in.Day)
			if err != nil {
				return nil, err
			}
			line.TaxRatePercent = rate
		}
		if line.TaxRatePercent.IsNegative() || line.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
			fail(prefix+"tax_rate_percent", "must be between 0 and 100")
		}

		lines = append(lines, line)
	}

	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	built := b.compute(in.Source, lines, in.Discount, in.Submitted)
	if built.Totals.TotalAmount.IsNegative() {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "discount", Message: "must not exceed the subtotal"},
		})
	}
	return built, nil
}

// preview resolves defaults like build but never rejects input: unknown
// items are ignored and lookup failures fall back to zero.
func (b *lineBuilder) preview(ctx context.Context, in lineBuildInput) *builtLines {
	catalogue, err := b.lookupItems(ctx, in.Lines)
	if err != nil {
		log.Printf("totals preview: item lookup failed: %v", err)
	}

	lines := make([]model.Line, 0, len(in.Lines))
	for i, req := range in.Lines {
		line := model.Line{
			Description: req.Description,
			HSNCode:     req.HSNCode,
			Quantity:    req.Quantity.Decimal,
			Position:    i,
		}
		var item *model.Item
		if id, err := uuid.Parse(req.ItemID); err == nil {
			if found, ok := catalogue[id]; ok {
				item = &found
				line.ItemID = &found.ID
				if line.HSNCode == "" {
					line.HSNCode = found.HSNCode
				}
			}
		}

		switch {
		case req.Rate != nil:
			line.Rate = req.Rate.Decimal
		case item != nil:
			line.Rate = in.Price.of(*item)
		}

		switch {
		case req.TaxRatePercent != nil:
			line.TaxRatePercent = req.TaxRatePercent.Decimal
		case item != nil:
			line.TaxRatePercent = item.TaxRatePercent
		default:
			rate, err := b.rates.RateFor(ctx, line.HSNCode, in.Day)
			if err != nil {
				log.Printf("totals preview: tax rate lookup failed: %v", err)
			}
			line.TaxRatePercent = rate
		}
		lines = append(lines, line)
	}

	return b.compute(in.Source, lines, in.Discount, in.Submitted)
}

func (b *lineBuilder) compute(source string, lines []model.Line, discount decimal.Decimal, submitted *SubmittedTotals) *builtLines {
	result := totals.Compute(lo.Map(lines, func(l model.Line, _ int) totals.LineItem {
		return totals.LineItem{Quantity: l.Quantity, Rate: l.Rate, TaxRatePercent: l.TaxRatePercent}
	}), discount)
	metrics.TotalsComputed.WithLabelValues(source).Inc()

	for i := range lines {
		lines[i].LineAmount = result.Lines[i].LineAmount
		lines[i].LineTax = result.Lines[i].LineTax
	}

	mismatches := totals.Reconcile(submitted.decimals(), result, b.tolerance)
	for _, m := range mismatches {
		metrics.TotalsMismatches.WithLabelValues(m.Field).Inc()
		log.Printf("totals: %s submitted stale %s", source, m)
	}

	return &builtLines{
		Lines: lines,
		Totals: model.Totals{
			SubTotal:    result.SubTotal,
			Discount:    result.Discount,
			TotalTax:    result.TotalTax,
			CGSTAmount:  result.CGSTAmount,
			SGSTAmount:  result.SGSTAmount,
			IGSTAmount:  result.IGSTAmount,
			RoundOff:    result.RoundOff,
			TotalAmount: result.TotalAmount,
		},
		Mismatches: mismatches,
	}
}

func (b *lineBuilder) lookupItems(ctx context.Context, reqs []LineRequest) (map[uuid.UUID]model.Item, error) {
	ids := lo.Uniq(lo.FilterMap(reqs, func(r LineRequest, _ int) (uuid.UUID, bool) {
		id, err := uuid.Parse(r.ItemID)
		return id, err == nil
	}))
	if len(ids) == 0 {
		return map[uuid.UUID]model.Item{}, nil
	}

	found, err := b.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	return lo.KeyBy(found, func(it model.Item) uuid.UUID { return it.ID }), nil
}

// --- Preview service ---

type TotalsPreviewRequest struct {
	Items     []LineRequest    `json:"items"`
	Discount  totals.Number    `json:"discount" swaggertype:"string"`
	Date      string           `json:"date"`       // YYYY-MM-DD, selects GST rules; defaults to today
	Kind      string           `json:"kind"`       // SALE (default) or PURCHASE, selects the item price used
	Submitted *SubmittedTotals `json:"submitted_totals"`
}

type TotalsPreviewResponse struct {
	Totals     TotalsResponse     `json:"totals"`
	Lines      []LineResponse     `json:"lines"`
	Mismatches []MismatchResponse `json:"totals_mismatches,omitempty"`
}

// TotalsService runs the totals engine on unsaved form data.
type TotalsService interface {
	Preview(ctx context.Context, req TotalsPreviewRequest) TotalsPreviewResponse
}

type totalsService struct {
	builder *lineBuilder
}

func NewTotalsService(items repository.ItemRepository, rates TaxRateResolver, tolerance decimal.Decimal) TotalsService {
	return &totalsService{builder: newLineBuilder(items, rates, tolerance)}
}

// Preview never fails. Half-filled rows contribute zero.
func (s *totalsService) Preview(ctx context.Context, req TotalsPreviewRequest) TotalsPreviewResponse {
	day, fe := parseDate("date", req.Date, today())
	if fe != nil {
		day = today()
	}
	price := salePrice
	if strings.EqualFold(req.Kind, "PURCHASE") {
		price = purchasePrice
	}

	built := s.builder.preview(ctx, lineBuildInput{
		Source:    "preview",
		Lines:     req.Items,
		Discount:  req.Discount.Decimal,
		Submitted: req.Submitted,
		Day:       day,
		Price:     price,
	})

	return TotalsPreviewResponse{
		Totals: toTotalsResponse(built.Totals),
		Lines: lo.Map(built.Lines, func(l model.Line, _ int) LineResponse {
			return toLineResponse(uuid.Nil, l)
		}),
		Mismatches: toMismatchResponses(built.Mismatches),
	}
}
