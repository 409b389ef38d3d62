package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type ReportQuery struct {
	Bucket string // week, month, quarter or year; month by default
	From   string // YYYY-MM-DD, defaults to the start of the current year
	To     string // YYYY-MM-DD, defaults to today
	Top    int    // number of top items, 5 by default
}

// PeriodReport lines up sales and purchases of one bucket. GST collected is
// the tax on invoices; GST paid is the tax on purchase bills.
type PeriodReport struct {
	Period        string `json:"period"`
	Invoices      int64  `json:"invoices"`
	Sales         string `json:"sales"`
	GSTCollected  string `json:"gst_collected"`
	PurchaseBills int64  `json:"purchase_bills"`
	Purchases     string `json:"purchases"`
	GSTPaid       string `json:"gst_paid"`
	NetGST        string `json:"net_gst"`
}

type TopItemResponse struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity string `json:"quantity"`
	Amount   string `json:"amount"`
}

type ReportResponse struct {
	From         string            `json:"from"`
	To           string            `json:"to"`
	Bucket       string            `json:"bucket"`
	Periods      []PeriodReport    `json:"periods"`
	TotalSales   string            `json:"total_sales"`
	TotalGST     string            `json:"total_gst_collected"`
	TotalBuys    string            `json:"total_purchases"`
	TotalGSTPaid string            `json:"total_gst_paid"`
	NetGST       string            `json:"net_gst"`
	TopItems     []TopItemResponse `json:"top_items"`
}

type ReportService interface {
	Summary(ctx context.Context, query ReportQuery) (ReportResponse, error)
}

type reportService struct {
	repo repository.ReportRepository
}

func NewReportService(repo repository.ReportRepository) ReportService {
	return &reportService{repo: repo}
}

var reportBuckets = []string{repository.BucketWeek, repository.BucketMonth, repository.BucketQuarter, repository.BucketYear}

func (s *reportService) Summary(ctx context.Context, query ReportQuery) (ReportResponse, error) {
	bucket := strings.ToLower(query.Bucket)
	if bucket == "" {
		bucket = repository.BucketMonth
	}
	var fieldErrors []apperror.FieldError
	if !lo.Contains(reportBuckets, bucket) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "bucket", Message: "must be week, month, quarter or year"})
	}
	now := today()
	from, fe := parseDate("from", query.From, time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	to, fe := parseDate("to", query.To, now)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) == 0 && to.Before(from) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "to", Message: "must not be before from"})
	}
	if len(fieldErrors) > 0 {
		return ReportResponse{}, apperror.NewValidationError(fieldErrors)
	}
	top := query.Top
	if top <= 0 || top > 50 {
		top = 5
	}

	sales, err := s.repo.SalesByPeriod(ctx, bucket, from, to)
	if err != nil {
		return ReportResponse{}, err
	}
	purchases, err := s.repo.PurchasesByPeriod(ctx, bucket, from, to)
	if err != nil {
		return ReportResponse{}, err
	}
	items, err := s.repo.TopItems(ctx, from, to, top)
	if err != nil {
		return ReportResponse{}, err
	}

	res := mergePeriods(sales, purchases)
	res.From = formatDate(from)
	res.To = formatDate(to)
	res.Bucket = bucket
	res.TopItems = lo.Map(items, func(r model.ItemRanking, _ int) TopItemResponse {
		return TopItemResponse{
			ItemID:   r.ItemID,
			Name:     r.Name,
			SKU:      r.SKU,
			Quantity: r.Quantity.String(),
			Amount:   money(r.Amount),
		}
	})
	return res, nil
}

// mergePeriods joins the sales and purchase series on their bucket start.
// Buckets present in only one series get zeros for the other.
func mergePeriods(sales, purchases []model.PeriodTotals) ReportResponse {
	key := func(p model.PeriodTotals) string { return formatDate(p.Period) }
	salesBy := lo.KeyBy(sales, key)
	purchasesBy := lo.KeyBy(purchases, key)

	periods := lo.Uniq(append(lo.Map(sales, func(p model.PeriodTotals, _ int) string { return key(p) }),
		lo.Map(purchases, func(p model.PeriodTotals, _ int) string { return key(p) })...))
	// YYYY-MM-DD sorts chronologically as a string.
	slices.Sort(periods)

	var totalSales, totalGST, totalBuys, totalPaid decimal.Decimal
	res := ReportResponse{Periods: make([]PeriodReport, 0, len(periods))}
	for _, p := range periods {
		s, b := salesBy[p], purchasesBy[p]
		totalSales = totalSales.Add(s.TotalAmount)
		totalGST = totalGST.Add(s.TotalTax)
		totalBuys = totalBuys.Add(b.TotalAmount)
		totalPaid = totalPaid.Add(b.TotalTax)
		res.Periods = append(res.Periods, PeriodReport{
			Period:        p,
			Invoices:      s.Documents,
			Sales:         money(s.TotalAmount),
			GSTCollected:  money(s.TotalTax),
			PurchaseBills: b.Documents,
			Purchases:     money(b.TotalAmount),
			GSTPaid:       money(b.TotalTax),
			NetGST:        money(s.TotalTax.Sub(b.TotalTax)),
		})
	}
	res.TotalSales = money(totalSales)
	res.TotalGST = money(totalGST)
	res.TotalBuys = money(totalBuys)
	res.TotalGSTPaid = money(totalPaid)
	res.NetGST = money(totalGST.Sub(totalPaid))
	return res
}
