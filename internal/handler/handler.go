// Package handler exposes the services over HTTP.
package handler

import (
	"net/http"

	"billbook/internal/middleware"
	"billbook/pkg/pagination"
	"billbook/pkg/response"

	"github.com/gin-gonic/gin"
)

// Guard builds the authentication middlewares used by the routes.
// *middleware.JWTManager implements it.
type Guard interface {
	RequireAuth() gin.HandlerFunc
	RequirePermission(requiredPerms ...string) gin.HandlerFunc
}

var _ Guard = (*middleware.JWTManager)(nil)

// bindJSON answers 400 when the body does not decode or fails its binding tags.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

// fail records err for the request logger and writes the error envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.Abort(c, err)
}

func paged(c *gin.Context, data any, p pagination.Params, total int64) {
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, data, p.Page, p.Limit, total))
}
