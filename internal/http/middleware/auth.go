// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates requests. Officers carry a signed session either in
// the session cookie or as "Authorization: Bearer <token>"; the bot surface
// uses "Authorization: Bot <token>". Authenticated identities are stored in
// the Gin context, and the "userID" key is set so rate limiting and access
// logs are keyed by identity instead of IP.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
)

const (
	ctxKeyUserID    = "userID"
	ctxKeyPrincipal = "auth.principal"
	ctxKeyBot       = "auth.bot"
)

// SessionVerifier validates officer session tokens.
type SessionVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// BotVerifier validates bot API tokens.
type BotVerifier interface {
	Verify(ctx context.Context, plain string) (*domain.APIToken, error)
}

// PrincipalFrom returns the officer authenticated by RequireSession.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// SetPrincipal stores p as the authenticated officer. Tests use it to skip
// token handling.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	caller := CallerOfficer + ":" + p.IDString()
	c.Set(ctxKeyPrincipal, p)
	c.Set(ctxKeyUserID, caller)
	withCaller(c, caller)
}

// BotFrom returns the token authenticated by RequireBot.
func BotFrom(c *gin.Context) (*domain.APIToken, bool) {
	v, ok := c.Get(ctxKeyBot)
	if !ok {
		return nil, false
	}
	t, ok := v.(*domain.APIToken)
	return t, ok && t != nil
}

// RequireSession rejects requests without a valid officer session with 401.
func RequireSession(v SessionVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c, "Bearer")
		if tok == "" && cookieName != "" {
			tok, _ = c.Cookie(cookieName)
		}
		if tok == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		p, err := v.Verify(tok)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		SetPrincipal(c, p)
		c.Next()
	}
}

// RequireRole rejects officers whose role is not listed with 403. It must run
// after RequireSession.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if _, ok := allowed[p.Role]; !ok {
			abortAuth(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// RequireBot authenticates the bot surface.
func RequireBot(v BotVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c, "Bot")
		if tok == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "bot token required")
			return
		}
		t, err := v.Verify(c.Request.Context(), tok)
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("bot token rejected")
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid bot token")
			return
		}
		caller := CallerBot + ":" + t.Name
		c.Set(ctxKeyBot, t)
		c.Set(ctxKeyUserID, caller)
		withCaller(c, caller)
		c.Next()
	}
}

// bearerToken returns the credential of an "Authorization: <scheme> <token>"
// header. The scheme comparison is case-insensitive.
func bearerToken(c *gin.Context, scheme string) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) <= len(scheme)+1 || !strings.EqualFold(h[:len(scheme)], scheme) || h[len(scheme)] != ' ' {
		return ""
	}
	return strings.TrimSpace(h[len(scheme)+1:])
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
