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

type PartyHandler struct {
	partyService service.PartyService
}

func NewPartyHandler(partyService service.PartyService) *PartyHandler {
	return &PartyHandler{partyService: partyService}
}

func (h *PartyHandler) RegisterRoutes(router *gin.RouterGroup, guard Guard) {
	read := guard.RequirePermission(model.PermPartiesRead)
	write := guard.RequirePermission(model.PermPartiesWrite)

	parties := router.Group("/api/parties")
	{
		parties.GET("", read, h.ListParties)
		parties.POST("", write, h.CreateParty)
		parties.GET("/:id", read, h.GetParty)
		parties.PUT("/:id", write, h.UpdateParty)
		parties.DELETE("/:id", write, h.DeleteParty)
	}
}

// ListParties returns clients and vendors
// @Summary      List parties
// @Tags         parties
// @Security     BearerAuth
// @Produce      json
// @Param        type    query     string  false  "CLIENT or VENDOR; parties of type BOTH match either"
// @Param        search  query     string  false  "Search by name, GSTIN or phone"
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Success      200     {object}  response.Response{data=[]service.PartyResponse}
// @Router       /api/parties [get]
func (h *PartyHandler) ListParties(c *gin.Context) {
	p := pagination.Parse(c)
	parties, total, err := h.partyService.ListParties(c.Request.Context(), c.Query("type"), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, parties, p, total)
}

// CreateParty adds a client or vendor
// @Summary      Create party
// @Description  The state code is taken from the GSTIN when not given.
// @Tags         parties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePartyRequest  true  "Party"
// @Success      201      {object}  response.Response{data=service.PartyResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/parties [post]
func (h *PartyHandler) CreateParty(c *gin.Context) {
	var req service.CreatePartyRequest
	if !bindJSON(c, &req) {
		return
	}

	party, err := h.partyService.CreateParty(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, party))
}

// GetParty returns one party
// @Summary      Get party
// @Tags         parties
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Party ID"
// @Success      200  {object}  response.Response{data=service.PartyResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/parties/{id} [get]
func (h *PartyHandler) GetParty(c *gin.Context) {
	party, err := h.partyService.GetParty(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, party))
}

// UpdateParty changes the fields present in the body
// @Summary      Update party
// @Tags         parties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Party ID"
// @Param        payload  body      service.UpdatePartyRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.PartyResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/parties/{id} [put]
func (h *PartyHandler) UpdateParty(c *gin.Context) {
	var req service.UpdatePartyRequest
	if !bindJSON(c, &req) {
		return
	}

	party, err := h.partyService.UpdateParty(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, party))
}

// DeleteParty soft deletes a party
// @Summary      Delete party
// @Tags         parties
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Party ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/parties/{id} [delete]
func (h *PartyHandler) DeleteParty(c *gin.Context) {
	if err := h.partyService.DeleteParty(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Party deleted successfully"))
}
