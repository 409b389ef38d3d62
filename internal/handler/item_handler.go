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

type ItemHandler struct {
	itemService service.ItemService
}

func NewItemHandler(itemService service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermItemsRead)
	write := guard.RequirePermission(model.PermItemsWrite)

	items := router.Group("/api/items")
	{
		items.GET("", read, h.ListItems)
		items.POST("", write, h.CreateItem)
		items.GET("/:id", read, h.GetItem)
		items.PUT("/:id", write, h.UpdateItem)
		items.DELETE("/:id", write, h.DeleteItem)
		items.POST("/:id/stock", write, h.AdjustStock)
		items.GET("/:id/movements", read, h.ListMovements)
	}
}

// ListItems handles retrieving the item catalogue
// @Summary      List items
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by name or SKU"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.ItemResponse}
// @Router       /api/items [get]
func (h *ItemHandler) ListItems(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.itemService.ListItems(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, items, p, total)
}

// CreateItem adds an item to the catalogue
// @Summary      Create item
// @Description  Without tax_rate_percent the GST rule active today for hsn_code applies.
// @Description  A positive opening_stock is recorded as an adjustment.
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateItemRequest  true  "Item"
// @Success      201      {object}  response.Response{data=service.ItemResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// GetItem returns one item
// @Summary      Get item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=service.ItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.itemService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// UpdateItem changes catalogue fields. Stock only moves through documents and adjustments.
// @Summary      Update item
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.UpdateItemRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/items/{id} [put]
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteItem soft deletes an item
// @Summary      Delete item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Router       /api/items/{id} [delete]
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.itemService.DeleteItem(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Item deleted successfully"))
}

// AdjustStock moves stock by hand
// @Summary      Adjust stock
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Item ID"
// @Param        payload  body      service.StockAdjustmentRequest  true  "Adjustment"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/items/{id}/stock [post]
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	var req service.StockAdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemService.AdjustStock(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListMovements returns the stock history of an item
// @Summary      List stock movements
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Item ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.StockMovementResponse}
// @Router       /api/items/{id}/movements [get]
func (h *ItemHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)
	movements, total, err := h.itemService.ListMovements(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, movements, p, total)
}
