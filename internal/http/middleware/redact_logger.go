// This file implements RedactingLogger, the access log of the MDT API. Query
// strings and header values are scrubbed of game character identifiers,
// emails, phone numbers and UUIDs before they are logged. Bodies are never
// logged.
//
//	r.Use(middleware.RequestID())
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxQueryLogLength caps the logged (already redacted) query string.
const maxQueryLogLength = 2048

// Patterns are applied in order. UUIDs go before phone numbers so the loose
// phone pattern never sees their digit groups.
var redactions = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	// Game identifiers: "<prefix>:<hex>", e.g. char1:..., license:...
	{regexp.MustCompile(`(?i)\b[a-z]+[0-9]*(?::|%3a)[0-9a-f]{8,}\b`), "[REDACTED:identifier]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	// Digits only: "+1 212-555-1212", "(212) 555-1212".
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

func redact(s string) string {
	for _, r := range redactions {
		if s == "" {
			break
		}
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// RedactOptions configures RedactingLogger. MaskHeaders lists extra header
// names (case-insensitive) whose values are replaced by "[REDACTED]" on top
// of Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger emits one "http_request" line per request at info, warn
// (4xx) or error (5xx, or when handlers attached gin errors). The line goes
// through the request-scoped logger, so it carries the caller once auth ran.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)
		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		lg := LoggerFrom(c)
		var ev *zerolog.Event
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		// Without RequestID the logger lacks the correlation fields.
		if _, ok := c.Get(requestIDKey); !ok {
			rid := c.Writer.Header().Get(requestIDHeader)
			if rid == "" {
				rid = c.GetHeader(requestIDHeader)
			}
			ev = ev.Str("request_id", rid).Str("method", c.Request.Method)
		}

		ev.
			Str("path", path).
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// truncate cuts s to max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
