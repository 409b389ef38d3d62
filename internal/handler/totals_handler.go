package handler

import (
	"net/http"

	"billbook/internal/service"
	"billbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type TotalsHandler struct {
	totalsService service.TotalsService
}

func NewTotalsHandler(totalsService service.TotalsService) *TotalsHandler {
	return &TotalsHandler{totalsService: totalsService}
}

func (h *TotalsHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	router.POST("/api/totals/preview", guard.RequireAuth(), h.Preview)
}

// Preview computes document totals for an unsaved form
// @Summary      Preview totals
// @Description  Runs the totals engine without saving anything. Rows that are not filled in yet count as zero,
// @Description  so the form can call this on every change.
// @Tags         totals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TotalsPreviewRequest  true  "Form state"
// @Success      200      {object}  response.Response{data=service.TotalsPreviewResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/totals/preview [post]
func (h *TotalsHandler) Preview(c *gin.Context) {
	var req service.TotalsPreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.totalsService.Preview(c.Request.Context(), req)))
}
