// Command server runs the TallyUp webhook service: the WhatsApp debt
// assistant pipeline plus the billing-event endpoint, with Prometheus
// metrics, OpenTelemetry tracing, and scheduled maintenance sweeps.
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
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/config"
	"github.com/jmfuentes/tallyup/internal/guard"
	httpapi "github.com/jmfuentes/tallyup/internal/http"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/nlp"
	"github.com/jmfuentes/tallyup/internal/observability"
	"github.com/jmfuentes/tallyup/internal/paywall"
	"github.com/jmfuentes/tallyup/internal/repo"
	"github.com/jmfuentes/tallyup/internal/sysutil"
	"github.com/jmfuentes/tallyup/internal/transport"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	cache := guard.NewTTLCache(cfg.Guard.CacheTTL)
	limiter := guard.NewSlidingLimiter(cfg.Guard.Window, cfg.Guard.Ceiling)
	gd := guard.New(db, cache, limiter, guard.Options{
		SIDRetention:  cfg.Guard.SIDRetention,
		HashRetention: cfg.Guard.HashRetention,
	})

	resolver := &intent.Resolver{Timeout: cfg.NLP.Timeout}
	if cfg.NLP.APIKey != "" {
		resolver.Fallback = nlp.NewClient(cfg.NLP.APIKey, cfg.NLP.Model)
	} else {
		log.Warn().Msg("no NLP API key; intent fallback disabled")
	}

	gate := paywall.New(db, cfg.Paywall.FreeDailyLimit, cfg.Paywall.WarnThreshold, cfg.AdminGrants)

	var sender transport.Sender
	if cfg.Transport.BaseURL != "" {
		sender = transport.NewHTTPSender(cfg.Transport.BaseURL, cfg.Transport.Token, cfg.Transport.Timeout)
	} else {
		log.Warn().Msg("no transport base URL; outbound sends disabled")
	}

	var checkout billing.CheckoutCreator
	if cfg.Billing.BaseURL != "" {
		checkout = billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey, cfg.Billing.SuccessURL, 10*time.Second)
	} else {
		log.Warn().Msg("no billing base URL; checkout disabled")
	}

	// Maintenance: purge expired dedup rows hourly, sweep the in-process
	// caches every few minutes.
	sched := cron.New()
	if _, err := sched.AddFunc("@hourly", func() {
		n, err := repo.PurgeExpiredDedupKeys(context.Background(), db, time.Now().UTC())
		if err != nil {
			log.Warn().Err(err).Msg("dedup purge failed")
			return
		}
		log.Debug().Int64("purged", n).Msg("dedup purge")
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule dedup purge")
	}
	if _, err := sched.AddFunc("@every 5m", func() {
		cache.Sweep()
		limiter.Sweep()
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule cache sweep")
	}
	sched.Start()
	defer sched.Stop()

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Guard:    gd,
		Resolver: resolver,
		Paywall:  gate,
		Sender:   sender,
		Checkout: checkout,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
