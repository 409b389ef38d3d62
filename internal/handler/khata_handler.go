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

type KhataHandler struct {
	khataService service.KhataService
}

func NewKhataHandler(khataService service.KhataService) *KhataHandler {
	return &KhataHandler{khataService: khataService}
}

func (h *KhataHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermKhataRead)
	write := guard.RequirePermission(model.PermKhataWrite)

	khata := router.Group("/api/khata")
	{
		khata.GET("/summary", read, h.Summary)
		khata.POST("/entries", write, h.AddEntry)
		khata.DELETE("/entries/:id", write, h.DeleteEntry)
		khata.GET("/parties/:id/entries", read, h.ListEntries)
		khata.GET("/parties/:id/balance", read, h.Balance)
	}
}

// AddEntry records a manual ledger entry
// @Summary      Add khata entry
// @Description  DEBIT raises what the party owes us, CREDIT lowers it.
// @Tags         khata
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.KhataEntryRequest  true  "Entry"
// @Success      201      {object}  response.Response{data=service.KhataEntryResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/khata/entries [post]
func (h *KhataHandler) AddEntry(c *gin.Context) {
	var req service.KhataEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.khataService.AddEntry(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// DeleteEntry removes a manual entry. Document postings go away with their document.
// @Summary      Delete khata entry
// @Tags         khata
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/khata/entries/{id} [delete]
func (h *KhataHandler) DeleteEntry(c *gin.Context) {
	if err := h.khataService.DeleteEntry(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Entry deleted successfully"))
}

// ListEntries returns a party's statement with running balances
// @Summary      Party statement
// @Tags         khata
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Party ID"
// @Param        from   query     string  false  "From date (YYYY-MM-DD)"
// @Param        to     query     string  false  "To date (YYYY-MM-DD)"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.KhataStatementResponse}
// @Router       /api/khata/parties/{id}/entries [get]
func (h *KhataHandler) ListEntries(c *gin.Context) {
	p := pagination.Parse(c)
	statement, total, err := h.khataService.ListEntries(c.Request.Context(), c.Param("id"), service.KhataListQuery{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Page:  p.Page,
		Limit: p.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, statement, p, total)
}

// Balance returns what a party owes us (negative: what we owe them)
// @Summary      Party balance
// @Tags         khata
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Party ID"
// @Success      200  {object}  response.Response{data=service.BalanceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/khata/parties/{id}/balance [get]
func (h *KhataHandler) Balance(c *gin.Context) {
	balance, err := h.khataService.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// Summary totals receivables and payables across parties
// @Summary      Khata summary
// @Tags         khata
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.KhataSummaryResponse}
// @Router       /api/khata/summary [get]
func (h *KhataHandler) Summary(c *gin.Context) {
	summary, err := h.khataService.Summary(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
