// Package httpapi wires the HTTP transport (Gin) to the MDT handlers,
// middleware and route groups. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency and rate
// limiting.
//
// Route groups:
//   - public: /health, /metrics, /swagger, POST {base}/auth/login
//   - officer: everything else under {base}, session required
//   - admin: officers and admin tools, session with role "admin"
//   - bot: {base}/bot, "Authorization: Bot <token>"
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-mdt-backend/docs"
	"github.com/tbourn/go-mdt-backend/internal/config"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/http/handlers"
	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
	"github.com/tbourn/go-mdt-backend/internal/repo"
)

// Deps are the collaborators RegisterRoutes mounts. DB backs the idempotency
// lookup and may be nil, which disables replay detection.
type Deps struct {
	DB       *gorm.DB
	Handlers *handlers.Handlers
	Sessions middleware.SessionVerifier
	Bots     middleware.BotVerifier
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip (event streams excluded)
//  8. CORS and Security headers
//
// Per group: authentication, then idempotency (needs the officer), then the
// rate limiter (bypassed on replay).
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	base := cfg.APIBasePath
	if base == "/" {
		base = ""
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Cookie", "Set-Cookie"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression; streams must flush unbuffered
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{base + "/events", "/metrics"}),
	))

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "X-Cache", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		// The session cookie only crosses origins that are listed explicitly.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		CacheRules: []middleware.CacheRule{
			{Prefix: base + "/auth/", Control: middleware.CacheNoStore},
			{Prefix: base + "/admin/", Control: middleware.CacheNoStore},
			{Prefix: base + "/", Control: middleware.CachePrivateCheck},
		},
		ContentSecurityPolicy: middleware.APIContentSecurityPolicy,
		CSPExempt:             []string{"/swagger/"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := deps.Handlers
	rl := middleware.NewRateLimiter(middleware.Limit{RPS: cfg.RateRPS, Burst: cfg.RateBurst}, middleware.KeyByCaller)
	if cfg.BotRateRPS > 0 {
		rl.WithCallerLimit(middleware.CallerBot, middleware.Limit{RPS: cfg.BotRateRPS, Burst: cfg.BotRateBurst})
	}
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(deps.DB))

	api := groupWithPrefix(r, base)

	// Public: login is limited per client IP.
	api.POST("/auth/login", rl.Handler(), h.Login)

	// Officer session required
	officer := api.Group("", middleware.RequireSession(deps.Sessions, cfg.Session.Cookie), idem, rl.Handler())
	{
		officer.POST("/auth/logout", h.Logout)
		officer.GET("/auth/me", h.Me)

		// Citizens and notes
		officer.GET("/citizens", h.SearchCitizens)
		officer.GET("/citizens/:id", h.GetCitizen)
		officer.GET("/citizens/:id/records", h.GetCitizenRecords)
		officer.GET("/citizens/:id/notes", h.ListNotes)
		officer.POST("/citizens/:id/notes", h.CreateNote)
		officer.DELETE("/notes/:id", h.DeleteNote)

		// Records
		officer.POST("/arrests", h.CreateArrest)
		officer.GET("/arrests", h.ListArrest)
		officer.GET("/arrests/:id", h.GetArrest)
		officer.PATCH("/arrests/:id", h.UpdateArrest)
		officer.DELETE("/arrests/:id", h.DeleteArrest)

		officer.POST("/reports", h.CreateReport)
		officer.GET("/reports", h.ListReport)
		officer.GET("/reports/:id", h.GetReport)
		officer.PATCH("/reports/:id", h.UpdateReport)
		officer.DELETE("/reports/:id", h.DeleteReport)

		officer.POST("/wanted", h.CreateWanted)
		officer.GET("/wanted", h.ListWanted)
		officer.GET("/wanted/:id", h.GetWanted)
		officer.PATCH("/wanted/:id", h.UpdateWanted)
		officer.DELETE("/wanted/:id", h.DeleteWanted)

		officer.POST("/licenses", h.CreateLicense)
		officer.GET("/licenses", h.ListLicense)
		officer.GET("/licenses/:id", h.GetLicense)
		officer.PATCH("/licenses/:id", h.UpdateLicense)
		officer.DELETE("/licenses/:id", h.DeleteLicense)

		// Change feed
		officer.GET("/events", h.StreamEvents)
		officer.GET("/events/ws", h.StreamEventsWS)
		officer.GET("/events/recent", h.RecentEvents)
	}

	// Admin role required
	admin := officer.Group("", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/officers", h.CreateOfficer)
		admin.GET("/officers", h.ListOfficers)
		admin.PATCH("/officers/:id", h.UpdateOfficer)

		admin.POST("/admin/search-cache/purge", h.PurgeSearchCache)
		admin.GET("/admin/tokens", h.ListTokens)
		admin.POST("/admin/tokens", h.CreateToken)
		admin.DELETE("/admin/tokens/:id", h.RevokeToken)
	}

	// Bot integration
	bot := api.Group("/bot", middleware.RequireBot(deps.Bots), rl.Handler())
	{
		bot.GET("/citizens", h.BotSearchCitizens)
		bot.GET("/citizens/:id", h.BotGetCitizen)
		bot.GET("/wanted", h.BotListWanted)
	}
}

// idempotencyLookup reports whether a live key exists for the officer and
// route. Lookup failures count as a miss; the write path re-checks the key
// inside its transaction.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	if db == nil {
		return nil
	}
	return func(ctx context.Context, officerID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, officerID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
