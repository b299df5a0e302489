// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-memory token-bucket limiter that guards the
// officer API, the login endpoint and the bot surface. Buckets are keyed by
// caller: "officer:<id>" and "bot:<name>" once authentication has run,
// "ip:<addr>" otherwise. Bot tokens get their own limits because bots poll on
// behalf of a whole Discord guild.
//
// The limiter is process-local. Idempotent replays flagged by
// IdempotencyValidator skip it.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Caller kinds, used as bucket key prefixes and metric labels.
const (
	CallerOfficer   = "officer"
	CallerBot       = "bot"
	CallerAnonymous = "anonymous"
)

// maxRetryAfter caps the Retry-After hint. A zero-rate bucket never refills.
const maxRetryAfter = 60

// Limit is a token-bucket configuration. Burst values <= 0 are coerced to 1.
type Limit struct {
	RPS   float64
	Burst int
}

func (l Limit) normalize() Limit {
	if l.Burst <= 0 {
		l.Burst = 1
	}
	return l
}

// KeyByCaller keys buckets by the authenticated caller set by RequireSession
// or RequireBot, falling back to the client IP.
func KeyByCaller(c *gin.Context) string {
	if s := c.GetString(ctxKeyUserID); s != "" {
		return s
	}
	return "ip:" + c.ClientIP()
}

// CallerKind maps a bucket key to one of the Caller* constants.
func CallerKind(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	switch kind {
	case CallerOfficer, CallerBot:
		return kind
	}
	return CallerAnonymous
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller key. Idle buckets are
// evicted after ttl during lookups. Safe for concurrent use.
type RateLimiter struct {
	def    Limit
	byKind map[string]Limit
	keyFn  func(*gin.Context) string

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter returns a limiter applying def to every caller kind without
// an override. A nil keyFn means KeyByCaller.
func NewRateLimiter(def Limit, keyFn func(*gin.Context) string) *RateLimiter {
	if keyFn == nil {
		keyFn = KeyByCaller
	}
	return &RateLimiter{
		def:      def.normalize(),
		byKind:   make(map[string]Limit),
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// WithCallerLimit overrides the limit for one caller kind. It must be called
// before the limiter serves traffic.
func (rl *RateLimiter) WithCallerLimit(kind string, l Limit) *RateLimiter {
	rl.byKind[kind] = l.normalize()
	return rl
}

func (rl *RateLimiter) limitFor(key string) Limit {
	if l, ok := rl.byKind[CallerKind(key)]; ok {
		return l
	}
	return rl.def
}

// getVisitor returns the bucket for key. Every 5000 lookups it first drops
// buckets idle for ttl, so a stale bucket is replaced rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rl.limitFor(key)
	lim := rate.NewLimiter(rate.Limit(l.RPS), l.Burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay of a completed request.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

// Handler enforces the limits. Rejected requests get 429 with a Retry-After
// hint in whole seconds and are counted in mdt_rate_limited_total.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		res := rl.getVisitor(key).Reserve()
		if res.OK() && res.Delay() == 0 {
			c.Next()
			return
		}
		wait := res.Delay()
		res.Cancel()

		kind := CallerKind(key)
		rateLimited.WithLabelValues(kind).Inc()
		LoggerFrom(c).Warn().Str("caller", key).Dur("retry_in", wait).Msg("rate limited")

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	switch {
	case d == rate.InfDuration:
		return maxRetryAfter
	case d <= 0:
		return 1
	}
	s := int(math.Ceil(d.Seconds()))
	return min(max(s, 1), maxRetryAfter)
}
