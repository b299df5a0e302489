// Package handlers exposes the MDT REST API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/broadcast"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// RecordService is the lifecycle of one citizen-bound record type.
type RecordService[T domain.Record] interface {
	CreateIdempotent(ctx context.Context, actor auth.Principal, scope, key string, rec T) (citizens.Aggregated[T], bool, error)
	Get(ctx context.Context, id uint) (citizens.Aggregated[T], error)
	ListPage(ctx context.Context, f repo.RecordFilter, page, pageSize int) ([]citizens.Aggregated[T], int64, error)
	Stats(ctx context.Context, f repo.RecordFilter) (int64, *time.Time, error)
	Update(ctx context.Context, actor auth.Principal, id uint, fields map[string]any) (citizens.Aggregated[T], error)
	Delete(ctx context.Context, actor auth.Principal, id uint) error
}

// CitizenService reads citizens from the game database.
type CitizenService interface {
	// Search returns the encoded result page and whether it came from cache.
	Search(ctx context.Context, q string, page, limit int) ([]byte, bool, error)
	Get(ctx context.Context, id int64) (*domain.Citizen, error)
	Records(ctx context.Context, id int64) (*services.CitizenRecords, error)
	PurgeCache() int
}

// NoteService manages free-form citizen notes.
type NoteService interface {
	List(ctx context.Context, citizenID int64) ([]domain.CitizenNote, error)
	Create(ctx context.Context, actor auth.Principal, citizenID int64, content string) (citizens.Aggregated[domain.CitizenNote], error)
	Delete(ctx context.Context, actor auth.Principal, id uint) error
}

// OfficerService manages officer accounts.
type OfficerService interface {
	Create(ctx context.Context, actor auth.Principal, in services.NewOfficer) (*domain.Officer, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Officer, int64, error)
	Update(ctx context.Context, actor auth.Principal, id uint, p services.OfficerPatch) (*domain.Officer, error)
}

// AuthService logs officers in and resolves the current account.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*services.Session, error)
	Me(ctx context.Context, p auth.Principal) (*domain.Officer, error)
}

// TokenService manages bot API tokens.
type TokenService interface {
	Create(ctx context.Context, actor auth.Principal, name string) (string, *domain.APIToken, error)
	List(ctx context.Context) ([]domain.APIToken, error)
	Revoke(ctx context.Context, id uint) error
}

// EventSource is the change feed consumed by the streaming endpoints.
type EventSource interface {
	Subscribe() (<-chan broadcast.Event, func())
	Recent() []broadcast.Event
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers.
type Services struct {
	Arrests  RecordService[domain.Arrest]
	Reports  RecordService[domain.Report]
	Wanted   RecordService[domain.WantedPerson]
	Licenses RecordService[domain.WeaponLicense]
	Citizens CitizenService
	Notes    NoteService
	Officers OfficerService
	Auth     AuthService
	Tokens   TokenService
	Events   EventSource
}

// Options tunes transport details.
type Options struct {
	// SessionCookie names the session cookie set on login.
	SessionCookie string
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// Heartbeat is the keep-alive interval of event streams. Defaults to 25s.
	Heartbeat time.Duration
	// AllowedOrigins may open the event websocket cross-origin. Same-origin
	// upgrades and clients sending no Origin are always accepted.
	AllowedOrigins []string
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	svc  Services
	opts Options

	arrests  *recordHandler[domain.Arrest, CreateArrestRequest]
	reports  *recordHandler[domain.Report, CreateReportRequest]
	wanted   *recordHandler[domain.WantedPerson, CreateWantedRequest]
	licenses *recordHandler[domain.WeaponLicense, CreateLicenseRequest]

	upgrader websocket.Upgrader
}

// New constructs and returns a Handlers instance bound to the given services.
func New(svc Services, opts Options) *Handlers {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "mdt_session"
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}
	return &Handlers{
		svc:      svc,
		opts:     opts,
		arrests:  newRecordHandler[domain.Arrest, CreateArrestRequest](svc.Arrests, arrestPatch),
		reports:  newRecordHandler[domain.Report, CreateReportRequest](svc.Reports, reportPatch),
		wanted:   newRecordHandler[domain.WantedPerson, CreateWantedRequest](svc.Wanted, wantedPatch),
		licenses: newRecordHandler[domain.WeaponLicense, CreateLicenseRequest](svc.Licenses, licensePatch),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

// originChecker guards the cookie-authenticated websocket against cross-site
// upgrades.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

//
// DTOs
//

//
// Helpers
//

// principal returns the authenticated officer. Routes behind RequireSession
// always have one.
func principal(c *gin.Context) auth.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// recordID parses a positive uint path parameter.
func recordID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 32)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// citizenID parses a positive citizen ID path parameter.
func citizenID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "citizen id must be a positive integer")
		return 0, false
	}
	return id, true
}

