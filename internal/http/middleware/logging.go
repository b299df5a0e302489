// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, the request-scoped logger and
// panic recovery. RequestID attaches a zerolog.Logger carrying request_id,
// method and route; the auth middleware adds the caller ("officer:<id>" or
// "bot:<name>") once it is known. Handlers and services log through
// LoggerFrom so every line of a request can be joined on request_id.
//
// Suggested order: RequestID, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	ctxKeyLogger    = "logger"

	// Inbound IDs longer than this, or with non-printable bytes, are replaced.
	maxRequestIDLength = 128
)

// RequestID reuses a well-formed inbound X-Request-ID or generates a UUIDv4,
// echoes it on the response and attaches the request-scoped logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)

		route := c.FullPath()
		if route == "" {
			route = unmatchedPath
		}
		l := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger()
		c.Set(ctxKeyLogger, &l)

		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// RequestID did not run. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}

// withCaller rebinds the request-scoped logger with the authenticated caller.
func withCaller(c *gin.Context, caller string) {
	l := LoggerFrom(c).With().Str("caller", caller).Logger()
	c.Set(ctxKeyLogger, &l)
}

// Recovery turns a panic into a JSON 500 (unless the handler already wrote)
// and logs it with its stack through the request logger.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				// The client went away mid-stream; net/http handles this one.
				panic(rec)
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			rid := c.GetString(requestIDKey)
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}
