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

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermDocumentsRead)
	write := guard.RequirePermission(model.PermDocumentsWrite)

	orders := router.Group("/api/orders")
	{
		orders.GET("", read, h.ListOrders)
		orders.POST("", write, h.CreateOrder)
		orders.GET("/:id", read, h.GetOrder)
		orders.PUT("/:id", write, h.UpdateOrder)
		orders.DELETE("/:id", write, h.DeleteOrder)
		orders.POST("/:id/convert", write, h.ConvertToInvoice)
	}
}

// CreateOrder records a sales order
// @Summary      Create order
// @Description  Orders carry computed totals but move no stock and post nothing to the khata.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DocumentRequest  true  "Order"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.DocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns a page of orders
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        party_id  query     string  false  "Party ID"
// @Param        status    query     string  false  "OPEN or CONVERTED"
// @Param        number    query     string  false  "Number contains"
// @Param        from      query     string  false  "From date (YYYY-MM-DD)"
// @Param        to        query     string  false  "To date (YYYY-MM-DD)"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.DocumentResponse}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), documentListQuery(c, p))
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, orders, p, total)
}

// GetOrder returns one order
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrder replaces an open order
// @Summary      Update order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Order ID"
// @Param        payload  body      service.DocumentRequest  true  "Order"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.DocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeleteOrder removes an open order
// @Summary      Delete order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order deleted successfully"))
}

// ConvertToInvoice turns an open order into an invoice
// @Summary      Convert order to invoice
// @Description  Copies the order lines and discount into a new invoice and marks the order CONVERTED.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true   "Order ID"
// @Param        payload  body      service.ConvertOrderRequest  false  "Invoice dates and notes"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/convert [post]
func (h *OrderHandler) ConvertToInvoice(c *gin.Context) {
	var req service.ConvertOrderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	invoice, err := h.orderService.ConvertToInvoice(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}
