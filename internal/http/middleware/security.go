// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders. The MDT API serves citizen records, so
// besides the usual hardening headers it decides per path how responses may
// be cached: session and admin responses are never stored, record listings
// may be kept privately by the browser and revalidated with their ETag.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cache-Control values used by CacheRule.
const (
	CacheNoStore      = "no-store"
	CachePrivateCheck = "private, no-cache"
)

// APIContentSecurityPolicy forbids every subresource. The API only returns
// JSON and event streams.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// CacheRule applies Control to every request path starting with Prefix.
type CacheRule struct {
	Prefix  string
	Control string
}

// SecurityOptions configures SecurityHeaders.
//
// HSTS is sent only when EnableHSTS is set and the request arrived over
// HTTPS. HSTSMaxAge defaults to 180 days.
//
// CacheRules are matched in order and the first matching prefix wins. A
// no-store rule also sets the legacy Pragma and Expires headers.
//
// ContentSecurityPolicy is skipped for paths under CSPExempt (the Swagger UI
// needs scripts and styles).
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	EnablePolicy bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies

	CacheRules            []CacheRule
	ContentSecurityPolicy string
	CSPExempt             []string
}

// SecurityHeaders returns a Gin middleware that sets the headers described by
// opt. X-Content-Type-Options, X-Frame-Options and Referrer-Policy are always
// sent, and X-Request-ID is added to Access-Control-Expose-Headers when the
// response carries one.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		path := c.Request.URL.Path

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.ContentSecurityPolicy != "" && !hasAnyPrefix(path, opt.CSPExempt) {
			h.Set("Content-Security-Policy", opt.ContentSecurityPolicy)
		}

		for _, rule := range opt.CacheRules {
			if !strings.HasPrefix(path, rule.Prefix) {
				continue
			}
			h.Set("Cache-Control", rule.Control)
			if rule.Control == CacheNoStore {
				h.Set("Pragma", "no-cache")
				h.Set("Expires", "0")
			}
			break
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get(requestIDHeader); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			switch cur := h.Get(hdr); {
			case cur == "":
				h.Set(hdr, requestIDHeader)
			case !strings.Contains(cur, requestIDHeader):
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isHTTPS reports whether the request used TLS directly or came through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
