package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/broadcast"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	httpapi "github.com/tbourn/go-mdt-backend/internal/http"
	"github.com/tbourn/go-mdt-backend/internal/http/handlers"
	"github.com/tbourn/go-mdt-backend/internal/notify"
	"github.com/tbourn/go-mdt-backend/internal/observability"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/search"
	"github.com/tbourn/go-mdt-backend/internal/services"
)

const (
	shutdownGrace    = 10 * time.Second
	idempotencySweep = time.Hour
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve wires both stores, the side-effect channels and the HTTP server, and
// blocks until ctx ends or a component fails.
func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := a.openPrimary()
	if err != nil {
		return err
	}
	defer closeDB(db)

	gameDB, err := citizens.OpenGameStore(cfg.GameDB.Driver, cfg.GameDB.DSN)
	if err != nil {
		return err
	}
	defer closeDB(gameDB)

	citizenRepo := citizens.NewRepository(gameDB, citizens.Options{
		Table:    cfg.GameDB.Table,
		Retries:  cfg.Citizens.LookupRetries,
		Timeout:  cfg.Citizens.LookupTimeout,
		FullScan: cfg.Citizens.FullScan,
		Logger:   log.With().Str("component", "citizens").Logger(),
	})
	resolver := citizens.NewResolver(citizenRepo)
	cache := search.NewCache(
		search.WithTTL(cfg.SearchCache.TTL),
		search.WithCapacity(cfg.SearchCache.MaxItems, cfg.SearchCache.Evict),
	)

	// Change feed, optionally fanned out through Redis.
	hubOpts := []broadcast.Option{
		broadcast.WithRecent(cfg.Broadcast.Recent),
		broadcast.WithLogger(log.With().Str("component", "broadcast").Logger()),
	}
	var relay *broadcast.RedisRelay
	if cfg.Broadcast.RedisURL != "" {
		rdb, err := broadcast.OpenRedis(ctx, cfg.Broadcast.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		relay = broadcast.NewRedisRelay(rdb, cfg.Broadcast.Channel, log.With().Str("component", "relay").Logger())
		hubOpts = append(hubOpts, broadcast.WithRelay(relay))
	}
	hub := broadcast.NewHub(hubOpts...)
	defer hub.Wait()

	notifier := notify.New(cfg.Discord.WebhookURL, cfg.Discord.Timeout, log)
	if d, ok := notifier.(*notify.Discord); ok {
		defer d.Wait()
	} else {
		log.Info().Msg("DISCORD_WEBHOOK_URL not set; notifications disabled")
	}

	fx := services.Effects{Notifier: notifier, Publisher: hub, Log: log}
	deps := services.RecordDeps{DB: db, Citizens: resolver}
	arrests := services.NewArrestService(fx, deps)
	reports := services.NewReportService(fx, deps)
	wanted := services.NewWantedService(fx, deps)
	licenses := services.NewLicenseService(fx, deps)
	arrests.IdempotencyTTL = cfg.IdempotencyTTL
	reports.IdempotencyTTL = cfg.IdempotencyTTL
	wanted.IdempotencyTTL = cfg.IdempotencyTTL
	licenses.IdempotencyTTL = cfg.IdempotencyTTL

	sessions := auth.NewSessions(cfg.Session.Secret, cfg.Session.TTL)
	officers := &services.OfficerService{DB: db, Effects: fx}
	tokens := services.NewTokenService(db, cfg.BotTokenCacheTTL)

	h := handlers.New(handlers.Services{
		Arrests:  arrests,
		Reports:  reports,
		Wanted:   wanted,
		Licenses: licenses,
		Citizens: services.NewCitizenService(citizenRepo, db, cache),
		Notes:    &services.NoteService{DB: db, Citizens: resolver, Effects: fx},
		Officers: officers,
		Auth:     &services.AuthService{Officers: officers, Sessions: sessions},
		Tokens:   tokens,
		Events:   hub,
	}, handlers.Options{
		SessionCookie:  cfg.Session.Cookie,
		CookieSecure:   cfg.Security.EnableHSTS,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Handlers: h, Sessions: sessions, Bots: tokens}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("mdt listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	if relay != nil {
		g.Go(func() error {
			// Without the subscription this instance still serves its own events.
			if err := relay.Run(gctx, hub); err != nil {
				log.Error().Err(err).Msg("broadcast relay stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		sweepIdempotency(gctx, db, log)
		return nil
	})
	return g.Wait()
}

// sweepIdempotency deletes expired idempotency keys until ctx ends.
func sweepIdempotency(ctx context.Context, db *gorm.DB, log zerolog.Logger) {
	t := time.NewTicker(idempotencySweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency keys removed")
			}
		}
	}
}
