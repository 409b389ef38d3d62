package response

import (
	"github.com/gin-gonic/gin"

	"billbook/pkg/apperror"
)

// Response represents a standard API response format
type Response struct {
	Status     string                `json:"status"`      // "success" or "error"
	StatusCode int                   `json:"status_code"` // HTTP status code
	Data       interface{}           `json:"data,omitempty"`
	Meta       *Meta                 `json:"meta,omitempty"`
	Error      string                `json:"error,omitempty"`
	Errors     []apperror.FieldError `json:"errors,omitempty"`
}

// Meta describes the page returned by a list endpoint.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps a page of data together with its paging metadata.
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Meta:       &Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages},
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ValidationError returns a 422 carrying per-field messages.
func ValidationError(fieldErrors []apperror.FieldError) Response {
	appErr := apperror.NewValidationError(fieldErrors)
	return Response{
		Status:     "error",
		StatusCode: appErr.Code,
		Error:      appErr.Message,
		Errors:     appErr.Errors,
	}
}

// Abort writes err as an error envelope, using its AppError status when it has one.
func Abort(c *gin.Context, err error) {
	appErr := apperror.GetAppError(err)
	c.AbortWithStatusJSON(appErr.Code, Response{
		Status:     "error",
		StatusCode: appErr.Code,
		Error:      appErr.Message,
		Errors:     appErr.Errors,
	})
}
