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

type PurchaseBillHandler struct {
	billService service.PurchaseBillService
}

func NewPurchaseBillHandler(billService service.PurchaseBillService) *PurchaseBillHandler {
	return &PurchaseBillHandler{billService: billService}
}

func (h *PurchaseBillHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermDocumentsRead)
	write := guard.RequirePermission(model.PermDocumentsWrite)

	bills := router.Group("/api/purchase-bills")
	{
		bills.GET("", read, h.ListBills)
		bills.POST("", write, h.CreateBill)
		bills.GET("/:id", read, h.GetBill)
		bills.PUT("/:id", write, h.UpdateBill)
		bills.DELETE("/:id", write, h.DeleteBill)
		bills.GET("/:id/payments", read, h.ListPayments)
		bills.POST("/:id/payments", write, h.RecordPayment)
	}
}

// CreateBill records a vendor's bill
// @Summary      Create purchase bill
// @Description  Adds the stock, valued at purchase price by default, and credits the vendor's khata.
// @Tags         purchase-bills
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PurchaseBillRequest  true  "Purchase bill"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/purchase-bills [post]
func (h *PurchaseBillHandler) CreateBill(c *gin.Context) {
	var req service.PurchaseBillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.CreateBill(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bill))
}

// ListBills returns a page of purchase bills
// @Summary      List purchase bills
// @Tags         purchase-bills
// @Security     BearerAuth
// @Produce      json
// @Param        party_id  query     string  false  "Vendor ID"
// @Param        status    query     string  false  "UNPAID, PARTIAL or PAID"
// @Param        from      query     string  false  "From date (YYYY-MM-DD)"
// @Param        to        query     string  false  "To date (YYYY-MM-DD)"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.DocumentResponse}
// @Router       /api/purchase-bills [get]
func (h *PurchaseBillHandler) ListBills(c *gin.Context) {
	p := pagination.Parse(c)
	bills, total, err := h.billService.ListBills(c.Request.Context(), documentListQuery(c, p))
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, bills, p, total)
}

// GetBill returns one purchase bill
// @Summary      Get purchase bill
// @Tags         purchase-bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase bill ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-bills/{id} [get]
func (h *PurchaseBillHandler) GetBill(c *gin.Context) {
	bill, err := h.billService.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// UpdateBill replaces an unpaid purchase bill
// @Summary      Update purchase bill
// @Tags         purchase-bills
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Purchase bill ID"
// @Param        payload  body      service.PurchaseBillRequest  true  "Purchase bill"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-bills/{id} [put]
func (h *PurchaseBillHandler) UpdateBill(c *gin.Context) {
	var req service.PurchaseBillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.UpdateBill(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// DeleteBill removes an unpaid purchase bill
// @Summary      Delete purchase bill
// @Description  Fails with 409 when the stock it brought in has already gone out.
// @Tags         purchase-bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase bill ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-bills/{id} [delete]
func (h *PurchaseBillHandler) DeleteBill(c *gin.Context) {
	if err := h.billService.DeleteBill(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase bill deleted successfully"))
}

// RecordPayment records money paid to the vendor
// @Summary      Record purchase bill payment
// @Tags         purchase-bills
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Purchase bill ID"
// @Param        payload  body      service.PaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-bills/{id}/payments [post]
func (h *PurchaseBillHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.billService.RecordPayment(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments lists the payments made against a purchase bill
// @Summary      List purchase bill payments
// @Tags         purchase-bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase bill ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Router       /api/purchase-bills/{id}/payments [get]
func (h *PurchaseBillHandler) ListPayments(c *gin.Context) {
	payments, err := h.billService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
