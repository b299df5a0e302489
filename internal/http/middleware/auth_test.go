package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
)

type botStub struct {
	want string
}

func (b botStub) Verify(_ context.Context, plain string) (*domain.APIToken, error) {
	if plain != b.want {
		return nil, errors.New("unknown token")
	}
	return &domain.APIToken{ID: 1, Name: "dispatch-bot"}, nil
}

func sessionRouter(t *testing.T, s *auth.Sessions, roles ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := []gin.HandlerFunc{RequireSession(s, "mdt_session")}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			t.Fatalf("principal missing after RequireSession")
		}
		uid, _ := c.Get("userID")
		c.String(http.StatusOK, "%s|%v", p.Username, uid)
	})
	r.GET("/me", chain...)
	return r
}

func TestRequireSession(t *testing.T) {
	s := auth.NewSessions("0123456789abcdef0123456789abcdef", time.Hour)
	tok, _, err := s.Issue(auth.Principal{OfficerID: 7, Username: "adams", Role: "officer"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := sessionRouter(t, s)

	t.Run("missing credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
			t.Fatalf("expected 401 envelope, got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("bearer header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "bearer "+tok)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "adams|officer:7" {
			t.Fatalf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "mdt_session", Value: tok})
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("cookie session rejected: %d", w.Code)
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok+"x")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("other signer", func(t *testing.T) {
		other := auth.NewSessions("ffffffffffffffffffffffffffffffff", time.Hour)
		foreign, _, _ := other.Issue(auth.Principal{OfficerID: 7})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+foreign)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	s := auth.NewSessions("0123456789abcdef0123456789abcdef", time.Hour)
	r := sessionRouter(t, s, domain.RoleAdmin)

	officer, _, _ := s.Issue(auth.Principal{OfficerID: 7, Username: "adams", Role: domain.RoleOfficer})
	admin, _, _ := s.Issue(auth.Principal{OfficerID: 1, Username: "chief", Role: domain.RoleAdmin})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+officer)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("officer should be forbidden, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "chief|") {
		t.Fatalf("admin should pass, got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireRole_WithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireBot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/bot/wanted", RequireBot(botStub{want: "mdt_good"}), func(c *gin.Context) {
		tok, ok := BotFrom(c)
		if !ok {
			t.Fatalf("bot token missing")
		}
		uid, _ := c.Get("userID")
		c.String(http.StatusOK, "%s|%v", tok.Name, uid)
	})

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bearer scheme is not accepted", "Bearer mdt_good", http.StatusUnauthorized},
		{"unknown token", "Bot mdt_bad", http.StatusUnauthorized},
		{"valid", "Bot mdt_good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/bot/wanted", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, w.Code)
			}
			if tc.code == http.StatusOK && w.Body.String() != "dispatch-bot|bot:dispatch-bot" {
				t.Fatalf("unexpected body %q", w.Body.String())
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct{ header, scheme, want string }{
		{"Bearer abc", "Bearer", "abc"},
		{"BEARER  abc ", "Bearer", "abc"},
		{"Bearerabc", "Bearer", ""},
		{"Bearer", "Bearer", ""},
		{"Bot xyz", "Bearer", ""},
		{"Bot xyz", "Bot", "xyz"},
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tc.header)
		if got := bearerToken(c, tc.scheme); got != tc.want {
			t.Fatalf("bearerToken(%q, %q) = %q, want %q", tc.header, tc.scheme, got, tc.want)
		}
	}
}
