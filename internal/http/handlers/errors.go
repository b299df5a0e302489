package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/services"
)

// Error codes carried in ErrorResponse.Code. Clients branch on these, never
// on the message.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	ErrCodeCreateFailed      = "create_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeUpdateFailed      = "update_failed"
	ErrCodeDeleteFailed      = "delete_failed"
	ErrCodeSearchFailed      = "search_failed"
	ErrCodeUpstreamFailed    = "upstream_failed"
	ErrCodeUpstreamTimeout   = "upstream_timeout"
	ErrCodeValidation        = "validation_failed"
	ErrCodeBadCredentials    = "invalid_credentials"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeBadIdempotencyKey = "bad_idempotency_key"
)

// serviceErrors maps service sentinels to responses. An empty msg echoes the
// error text, which for validation errors names the offending field.
var serviceErrors = []struct {
	target error
	status int
	code   string
	msg    string
}{
	{services.ErrInvalid, http.StatusBadRequest, ErrCodeValidation, ""},
	{services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound, "record not found"},
	{services.ErrCitizenNotFound, http.StatusNotFound, ErrCodeNotFound, "citizen not found"},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "not allowed"},
	{services.ErrUsernameTaken, http.StatusConflict, ErrCodeConflict, ""},
	{services.ErrBadCredentials, http.StatusUnauthorized, ErrCodeBadCredentials, "invalid credentials"},
	{services.ErrTokenInvalid, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid bot token"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeUpstreamTimeout, "game database did not answer in time"},
}

// failFor maps a service error onto the error envelope. Anything unmapped is
// a 500 with the given code.
func failFor(c *gin.Context, err error, code string) {
	for _, m := range serviceErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.msg
		if msg == "" {
			msg = err.Error()
		}
		if m.status >= http.StatusInternalServerError {
			failErr(c, m.status, m.code, msg, err)
			return
		}
		fail(c, m.status, m.code, msg)
		return
	}
	failErr(c, http.StatusInternalServerError, code, "internal server error", err)
}
