// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the MDT settings:
// server timeouts, logging, both database connections, sessions, Discord
// notifications, the change broadcaster, the citizen search cache, rate
// limiting and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSessionSecret is the shortest accepted HMAC key for session tokens.
const minSessionSecret = 32

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-mdt-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the MDT's own store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // sqlite file
	DSN    string // postgres DSN
}

// GameDBConfig points at the game server's database holding characters.
type GameDBConfig struct {
	Driver string // mysql|postgres|sqlite
	DSN    string
	Table  string // character table, usually "users"
}

// SessionConfig controls officer session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Cookie string
}

// DiscordConfig controls webhook notifications. An empty URL disables them.
type DiscordConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// BroadcastConfig controls the change feed.
type BroadcastConfig struct {
	RedisURL string // empty keeps events in-process
	Channel  string
	Recent   int // ring buffer size
}

// SearchCacheConfig bounds the citizen search cache.
type SearchCacheConfig struct {
	TTL      time.Duration
	MaxItems int
	Evict    int // entries dropped when MaxItems is reached
}

// CitizenConfig tunes external character lookups.
type CitizenConfig struct {
	LookupRetries int
	LookupTimeout time.Duration // 0 = none
	FullScan      bool          // match short hex windows for IDs below 0x10000000
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Stores
	DB     DBConfig
	GameDB GameDBConfig

	// MDT
	Session          SessionConfig
	Discord          DiscordConfig
	Broadcast        BroadcastConfig
	SearchCache      SearchCacheConfig
	Citizens         CitizenConfig
	BotTokenCacheTTL time.Duration

	// Rate limiting
	RateRPS      float64 // tokens per second (>= 0)
	RateBurst    int     // bucket size (>= 1)
	BotRateRPS   float64 // bot token buckets; 0 shares the officer limits
	BotRateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv reads KEY=VALUE files into the environment. Missing files are
// skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Stores
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "mdt.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		GameDB: GameDBConfig{
			Driver: strings.ToLower(getenv("GAME_DB_DRIVER", "mysql")),
			DSN:    getenv("GAME_DB_DSN", ""),
			Table:  getenv("GAME_DB_TABLE", "users"),
		},

		// MDT
		Session: SessionConfig{
			Secret: getenv("SESSION_SECRET", ""),
			TTL:    getdur("SESSION_TTL", 12*time.Hour),
			Cookie: getenv("SESSION_COOKIE", "mdt_session"),
		},
		Discord: DiscordConfig{
			WebhookURL: strings.TrimSpace(getenv("DISCORD_WEBHOOK_URL", "")),
			Timeout:    getdur("DISCORD_TIMEOUT", 5*time.Second),
		},
		Broadcast: BroadcastConfig{
			RedisURL: strings.TrimSpace(getenv("REDIS_URL", "")),
			Channel:  getenv("BROADCAST_CHANNEL", "mdt:events"),
			Recent:   getint("BROADCAST_RECENT", 50),
		},
		SearchCache: SearchCacheConfig{
			TTL:      getdur("SEARCH_CACHE_TTL", 60*time.Second),
			MaxItems: getint("SEARCH_CACHE_MAX", 100),
			Evict:    getint("SEARCH_CACHE_EVICT", 50),
		},
		Citizens: CitizenConfig{
			LookupRetries: getint("CITIZEN_LOOKUP_RETRIES", 0),
			LookupTimeout: getdur("CITIZEN_LOOKUP_TIMEOUT", 0),
			FullScan:      getbool("CITIZEN_FULL_SCAN", true),
		},
		BotTokenCacheTTL: getdur("BOT_TOKEN_CACHE_TTL", 5*time.Minute),

		// Rate limiting
		RateRPS:      getfloat("RATE_RPS", 5.0),
		RateBurst:    getint("RATE_BURST", 10),
		BotRateRPS:   getfloat("BOT_RATE_RPS", 2.0),
		BotRateBurst: getint("BOT_RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-mdt-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.GameDB.Driver == "postgresql" {
		cfg.GameDB.Driver = "postgres"
	}
	if cfg.GameDB.Driver == "mariadb" {
		cfg.GameDB.Driver = "mysql"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.GameDB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return cfg, errors.New("GAME_DB_DRIVER must be one of: mysql, postgres, sqlite")
	}
	if strings.TrimSpace(cfg.GameDB.Table) == "" {
		return cfg, errors.New("GAME_DB_TABLE must not be empty")
	}
	if cfg.Session.TTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Session.Cookie) == "" {
		return cfg, errors.New("SESSION_COOKIE must not be empty")
	}
	if cfg.Discord.Timeout <= 0 {
		return cfg, errors.New("DISCORD_TIMEOUT must be > 0")
	}
	if cfg.Broadcast.Recent < 0 {
		return cfg, errors.New("BROADCAST_RECENT must be >= 0")
	}
	if cfg.Broadcast.RedisURL != "" && strings.TrimSpace(cfg.Broadcast.Channel) == "" {
		return cfg, errors.New("BROADCAST_CHANNEL must not be empty when REDIS_URL is set")
	}
	if cfg.SearchCache.TTL <= 0 {
		return cfg, errors.New("SEARCH_CACHE_TTL must be > 0")
	}
	if cfg.SearchCache.MaxItems < 1 {
		return cfg, errors.New("SEARCH_CACHE_MAX must be >= 1")
	}
	if cfg.SearchCache.Evict < 1 || cfg.SearchCache.Evict > cfg.SearchCache.MaxItems {
		return cfg, errors.New("SEARCH_CACHE_EVICT must be in [1,SEARCH_CACHE_MAX]")
	}
	if cfg.Citizens.LookupRetries < 0 {
		return cfg, errors.New("CITIZEN_LOOKUP_RETRIES must be >= 0")
	}
	if cfg.Citizens.LookupTimeout < 0 {
		return cfg, errors.New("CITIZEN_LOOKUP_TIMEOUT must be >= 0")
	}
	if cfg.BotTokenCacheTTL < 0 {
		return cfg, errors.New("BOT_TOKEN_CACHE_TTL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.BotRateRPS < 0 {
		return cfg, errors.New("BOT_RATE_RPS must be >= 0")
	}
	if cfg.BotRateRPS > 0 && cfg.BotRateBurst < 1 {
		return cfg, errors.New("BOT_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs. Offline
// commands (migrate, officer create) run without them.
func (c Config) ValidateServe() error {
	if len(c.Session.Secret) < minSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecret)
	}
	if strings.TrimSpace(c.GameDB.DSN) == "" {
		return errors.New("GAME_DB_DSN is required")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
