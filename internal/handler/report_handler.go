package handler

import (
	"net/http"
	"strconv"

	"billbook/internal/model"
	"billbook/internal/service"
	"billbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	reports := router.Group("/api/reports")
	{
		reports.GET("/summary", guard.RequirePermission(model.PermReportsRead), h.Summary)
	}
}

// Summary returns sales, purchases and GST per period with the best selling items
// @Summary      Sales and GST summary
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        bucket  query     string  false  "week, month (default), quarter or year"
// @Param        from    query     string  false  "From date (YYYY-MM-DD), defaults to 1 January"
// @Param        to      query     string  false  "To date (YYYY-MM-DD), defaults to today"
// @Param        top     query     int     false  "Number of top items (default 5)"
// @Success      200     {object}  response.Response{data=service.ReportResponse}
// @Failure      422     {object}  response.Response
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	top, _ := strconv.Atoi(c.Query("top"))

	report, err := h.reportService.Summary(c.Request.Context(), service.ReportQuery{
		Bucket: c.Query("bucket"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Top:    top,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
