package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-mdt-backend/internal/auth"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	cases := []struct {
		name, header, in string
		keep             bool
	}{
		{"generated", requestIDHeader, "", false},
		{"lowercase header", "x-request-id", "abc-123", true},
		{"uppercase value", requestIDHeader, "Z-REQ-123", true},
		{"too long", requestIDHeader, strings.Repeat("x", maxRequestIDLength+1), false},
		{"control chars", requestIDHeader, "abc\x01def", false},
		{"non ascii", requestIDHeader, "café", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.in != "" {
				req.Header.Set(tc.header, tc.in)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q / context %q", got, w.Body.String())
			}
			if tc.keep && got != tc.in {
				t.Fatalf("inbound id not kept: %q", got)
			}
			if !tc.keep && got == tc.in {
				t.Fatalf("inbound id %q should have been replaced", tc.in)
			}
		})
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("fallback without RequestID", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("plain")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

		lines := logLines(t, buf)
		if len(lines) != 1 || lines[0]["message"] != "plain" {
			t.Fatalf("lines = %v", lines)
		}
		if _, ok := lines[0]["request_id"]; ok {
			t.Fatalf("fallback logger has request_id: %v", lines[0])
		}
	})

	t.Run("request scoped with caller", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		r.GET("/citizens/:id", func(c *gin.Context) {
			SetPrincipal(c, auth.Principal{OfficerID: 7, Role: "officer"})
			LoggerFrom(c).Info().Msg("lookup")
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/citizens/3", nil)
		req.Header.Set(requestIDHeader, "rid-7")
		r.ServeHTTP(httptest.NewRecorder(), req)

		lines := logLines(t, buf)
		if len(lines) != 1 {
			t.Fatalf("lines = %v", lines)
		}
		l := lines[0]
		if l["request_id"] != "rid-7" || l["route"] != "/citizens/:id" || l["method"] != "GET" || l["caller"] != "officer:7" {
			t.Fatalf("request fields missing: %v", l)
		}
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("json 500", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID(), Recovery())
		r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		req.Header.Set(requestIDHeader, "rid-p")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body["code"] != "internal_error" || body["request_id"] != "rid-p" {
			t.Fatalf("body = %v", body)
		}
		lines := logLines(t, buf)
		if len(lines) != 1 || lines[0]["message"] != "panic recovered" || lines[0]["panic"] != "kaboom" || lines[0]["request_id"] != "rid-p" {
			t.Fatalf("panic log = %v", lines)
		}
	})

	t.Run("after write", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(Recovery())
		r.GET("/late", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("late kaboom")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

		if strings.Contains(w.Body.String(), "internal_error") {
			t.Fatalf("json body written after partial response: %q", w.Body.String())
		}
		if !strings.Contains(buf.String(), "panic recovered") {
			t.Fatalf("panic not logged: %s", buf.String())
		}
	})
}

func TestTruncate(t *testing.T) {
	if truncate("hello", 10) != "hello" {
		t.Fatal("short string changed")
	}
	if got := truncate("abcdefgh", 5); got != "abcde…" {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("abc", 0) != "abc" {
		t.Fatal("max <= 0 must disable truncation")
	}
}
