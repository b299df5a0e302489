package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestKeyByCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	if got := KeyByCaller(c); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(ctxKeyUserID, "officer:12")
	if got := KeyByCaller(c); got != "officer:12" {
		t.Fatalf("officer key = %q", got)
	}
}

func TestCallerKind(t *testing.T) {
	cases := map[string]string{
		"officer:1":       CallerOfficer,
		"bot:dispatch":    CallerBot,
		"ip:203.0.113.9":  CallerAnonymous,
		"":                CallerAnonymous,
		"officers:1":      CallerAnonymous,
		"bot-without-sep": CallerAnonymous,
	}
	for key, want := range cases {
		if got := CallerKind(key); got != want {
			t.Errorf("CallerKind(%q) = %q; want %q", key, got, want)
		}
	}
}

func TestRateLimiter_PerKindLimits(t *testing.T) {
	rl := NewRateLimiter(Limit{RPS: 2, Burst: 0}, nil).
		WithCallerLimit(CallerBot, Limit{RPS: 1, Burst: 4})
	if rl.def.Burst != 1 {
		t.Fatalf("burst coercion failed: %+v", rl.def)
	}

	off := rl.getVisitor("officer:1")
	if off.Burst() != 1 || off.Limit() != rate.Limit(2) {
		t.Fatalf("officer bucket = %v/%d", off.Limit(), off.Burst())
	}
	bot := rl.getVisitor("bot:dispatch")
	if bot.Burst() != 4 || bot.Limit() != rate.Limit(1) {
		t.Fatalf("bot bucket = %v/%d", bot.Limit(), bot.Burst())
	}
	if rl.getVisitor("officer:1") != off {
		t.Fatal("expected bucket reuse")
	}
}

func TestRateLimiter_getVisitor_EvictsIdle(t *testing.T) {
	rl := NewRateLimiter(Limit{RPS: 1, Burst: 1}, nil)
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["officer:old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.lookups = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("officer:new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["officer:old"]; ok {
		t.Fatal("idle bucket not evicted")
	}
	if _, ok := rl.visitors["officer:new"]; !ok {
		t.Fatal("new bucket missing")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsRateBypass(c) {
		t.Fatal("bypass should default to false")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatal("bypass flag ignored")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatal("non-bool flag must read as false")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(Limit{RPS: 1, Burst: 1}, nil).
		WithCallerLimit(CallerBot, Limit{RPS: 0, Burst: 2})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header(requestIDHeader, "rid-1")
		if who := c.GetHeader("X-Test-Caller"); who != "" {
			c.Set(ctxKeyUserID, who)
		}
		if c.GetHeader("X-Test-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/citizens", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	do := func(caller string, replay bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/citizens", nil)
		if caller != "" {
			req.Header.Set("X-Test-Caller", caller)
		}
		if replay {
			req.Header.Set("X-Test-Replay", "1")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	baseOfficer := testutil.ToFloat64(rateLimited.WithLabelValues(CallerOfficer))

	if w := do("officer:1", false); w.Code != http.StatusOK {
		t.Fatalf("first officer request: %d", w.Code)
	}
	w := do("officer:1", false)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second officer request: %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("Retry-After = %q; want 1", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "rate_limited" || body["request_id"] != "rid-1" {
		t.Fatalf("body = %v", body)
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues(CallerOfficer)); got != baseOfficer+1 {
		t.Fatalf("rate_limited{officer} = %v; want %v", got, baseOfficer+1)
	}

	// Other officers and anonymous callers have their own buckets.
	if w := do("officer:2", false); w.Code != http.StatusOK {
		t.Fatalf("other officer: %d", w.Code)
	}
	if w := do("", false); w.Code != http.StatusOK {
		t.Fatalf("anonymous: %d", w.Code)
	}

	// Replays skip the exhausted bucket.
	if w := do("officer:1", true); w.Code != http.StatusOK {
		t.Fatalf("replay: %d", w.Code)
	}

	// A zero-rate bot bucket spends its burst and then never refills.
	for i := 0; i < 2; i++ {
		if w := do("bot:dispatch", false); w.Code != http.StatusOK {
			t.Fatalf("bot request %d: %d", i, w.Code)
		}
	}
	w = do("bot:dispatch", false)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != strconv.Itoa(maxRetryAfter) {
		t.Fatalf("exhausted bot: %d Retry-After=%q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{10 * time.Minute, maxRetryAfter},
		{rate.InfDuration, maxRetryAfter},
	}
	for _, tc := range cases {
		if got := retryAfterSeconds(tc.in); got != tc.want {
			t.Errorf("retryAfterSeconds(%v) = %d; want %d", tc.in, got, tc.want)
		}
	}
}
