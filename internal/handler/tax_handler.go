package handler

import (
	"net/http"
	"time"

	"billbook/internal/middleware"
	"billbook/internal/model"
	"billbook/internal/service"
	"billbook/pkg/pagination"
	"billbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermTaxRulesRead)
	write := guard.RequirePermission(model.PermTaxRulesWrite)

	tax := router.Group("/api/tax-rules")
	{
		tax.GET("", read, h.ListTaxRules)
		tax.GET("/active", read, h.ActiveRate)
		tax.POST("", write, h.CreateTaxRule)
		tax.PUT("/:id", write, h.UpdateTaxRule)
		tax.DELETE("/:id", write, h.DeleteTaxRule)
	}
}

// ListTaxRules returns GST rules, newest first
// @Summary      List tax rules
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        hsn_prefix  query     string  false  "HSN prefix starts with"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=[]service.TaxRuleResponse}
// @Router       /api/tax-rules [get]
func (h *TaxHandler) ListTaxRules(c *gin.Context) {
	p := pagination.Parse(c)
	rules, total, err := h.taxService.ListRules(c.Request.Context(), c.Query("hsn_prefix"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, rules, p, total)
}

// ActiveRate answers which GST rate applies to an HSN code on a date
// @Summary      Active tax rate
// @Description  The rule with the longest matching HSN prefix wins. Without a match the configured default applies.
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        hsn   query     string  true   "HSN code"
// @Param        date  query     string  false  "Date (YYYY-MM-DD), defaults to today"
// @Success      200   {object}  response.Response{data=service.ActiveTaxRateResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/tax-rules/active [get]
func (h *TaxHandler) ActiveRate(c *gin.Context) {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "date must be in YYYY-MM-DD format"))
			return
		}
		day = parsed
	}

	rate, err := h.taxService.ActiveRate(c.Request.Context(), c.Query("hsn"), day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRule adds a GST rule
// @Summary      Create tax rule
// @Description  Rules for the same HSN prefix may not overlap in time.
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxRuleRequest  true  "Rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.taxService.CreateRule(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule replaces a GST rule
// @Summary      Update tax rule
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Rule ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Rule"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.taxService.UpdateRule(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule removes a GST rule
// @Summary      Delete tax rule
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxService.DeleteRule(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Tax rule deleted successfully"))
}
