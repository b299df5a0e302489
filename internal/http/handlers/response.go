// Response envelopes shared by every MDT endpoint.
//
// Errors always use ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{"request_id": "...", "code": "not_found", "message": "citizen not found"}
//
// Lists wrap their items with Pagination. Messages of 5xx responses never
// carry driver or network errors; those go to the request log.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
	"github.com/tbourn/go-mdt-backend/internal/utils"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable code, see errors.go
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"citizen not found"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination reads page and page_size ("limit" is an alias) and bounds
// them to utils.MaxPageSize.
func clampPagination(c *gin.Context) (page, pageSize int) {
	size := c.Query("page_size")
	if size == "" {
		size = c.Query("limit")
	}
	pageSize = max(utils.AtoiDefault(size, utils.DefaultPageSize), 1)
	return utils.ClampPage(utils.AtoiDefault(c.Query("page"), 1), pageSize)
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failErr is fail for server-side errors: err is logged with the request and
// only msg reaches the client.
func failErr(c *gin.Context, status int, code, msg string, err error) {
	middleware.LoggerFrom(c).Error().
		Err(err).
		Int("status", status).
		Str("code", code).
		Msg("request failed")
	_ = c.Error(err)
	fail(c, status, code, msg)
}

// Fail lets the router answer with the same envelope (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
