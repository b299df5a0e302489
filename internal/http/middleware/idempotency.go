// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header officers send when filing
// records from flaky in-game connections. Keys are owned by the officer and
// scoped to the matched route; the record service stores and replays them.
// The middleware only validates the key and flags known replays so the rate
// limiter lets them through.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const defaultIdempotencyMaxLen = 200

var defaultIdempotencyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the key was already used by the same officer on
// the same route and is still live.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures key validation. MaxLen <= 0 means 200 and a
// nil Pattern allows letters, digits and "._~-:".
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a live key exists for (officerID, scope,
// key) at now. Expiry is the lookup's business.
type IdempotencyLookup func(ctx context.Context, officerID, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator must run after RequireSession. On POST, PUT, PATCH
// and DELETE it rejects malformed keys with 400 bad_idempotency_key, stores
// valid keys for GetIdempotencyKey and flags live ones as replays. Safe
// methods ignore the header. A failing lookup is logged and treated as a
// miss.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdempotencyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdempotencyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		p, ok := PrincipalFrom(c)
		if lookup == nil || !ok {
			c.Next()
			return
		}
		live, err := lookup(c.Request.Context(), p.IDString(), IdempotencyScope(c), key, time.Now().UTC())
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		case live:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// IdempotencyScope is the route pattern a key is stored under, or the raw
// path when no route matched.
func IdempotencyScope(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
