package handler

import (
	"net/http"

	"billbook/internal/middleware"
	"billbook/internal/model"
	"billbook/internal/service"
	"billbook/pkg/pagination"
	"billbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermDocumentsRead)
	write := guard.RequirePermission(model.PermDocumentsWrite)

	invoices := router.Group("/api/invoices")
	{
		invoices.GET("", read, h.ListInvoices)
		invoices.POST("", write, h.CreateInvoice)
		invoices.GET("/:id", read, h.GetInvoice)
		invoices.PUT("/:id", write, h.UpdateInvoice)
		invoices.DELETE("/:id", write, h.DeleteInvoice)
		invoices.GET("/:id/payments", read, h.ListPayments)
		invoices.POST("/:id/payments", write, h.RecordPayment)
	}
}

// documentListQuery reads the filters shared by the document listings.
func documentListQuery(c *gin.Context, p pagination.Params) service.DocumentListQuery {
	return service.DocumentListQuery{
		PartyID: c.Query("party_id"),
		Status:  c.Query("status"),
		Number:  c.Query("number"),
		From:    c.Query("from"),
		To:      c.Query("to"),
		Page:    p.Page,
		Limit:   p.Limit,
	}
}

// CreateInvoice bills a client
// @Summary      Create invoice
// @Description  Computes totals on the server, takes the stock out and debits the client's khata.
// @Description  Submitted totals are only compared; differences come back in totals_mismatches.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DocumentRequest  true  "Invoice"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.DocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a page of invoices
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        party_id  query     string  false  "Party ID"
// @Param        status    query     string  false  "UNPAID, PARTIAL or PAID"
// @Param        number    query     string  false  "Number contains"
// @Param        from      query     string  false  "From date (YYYY-MM-DD)"
// @Param        to        query     string  false  "To date (YYYY-MM-DD)"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.DocumentResponse}
// @Failure      422       {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), documentListQuery(c, p))
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, invoices, p, total)
}

// GetInvoice returns one invoice with its lines and payments
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice replaces an unpaid invoice
// @Summary      Update invoice
// @Description  Only invoices without payments can change. Stock and khata postings are redone.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Invoice ID"
// @Param        payload  body      service.DocumentRequest  true  "Invoice"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.DocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes an unpaid invoice
// @Summary      Delete invoice
// @Description  Returns the stock, removes the khata debit and reopens the source order, if any.
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Invoice deleted successfully"))
}

// RecordPayment records money received against an invoice
// @Summary      Record invoice payment
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Invoice ID"
// @Param        payload  body      service.PaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.invoiceService.RecordPayment(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments lists the payments of an invoice
// @Summary      List invoice payments
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Router       /api/invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	payments, err := h.invoiceService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
