// Package httpapi wires the HTTP transport (Gin) to the pipeline services,
// middleware, and the two webhook endpoints. It centralizes cross-cutting
// concerns: tracing, correlation IDs, logging/redaction, panic recovery,
// metrics, compression, security headers, and edge rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/config"
	"github.com/jmfuentes/tallyup/internal/guard"
	"github.com/jmfuentes/tallyup/internal/http/handlers"
	"github.com/jmfuentes/tallyup/internal/http/middleware"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/paywall"
	"github.com/jmfuentes/tallyup/internal/services"
	"github.com/jmfuentes/tallyup/internal/transport"
)

// Deps carries the long-lived collaborators constructed in main. Sender and
// Checkout may be nil when their credentials are unset; the pipeline degrades
// the affected intents.
type Deps struct {
	DB       *gorm.DB
	Guard    *guard.Guard
	Resolver *intent.Resolver
	Paywall  *paywall.Gate
	Sender   transport.Sender
	Checkout billing.CheckoutCreator
}

// RegisterRoutes attaches all middleware and endpoints to the Gin engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics and the /metrics endpoint
//  8. Edge rate limiter (per source IP)
//  9. Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(256 << 10))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	chatSvc := &services.ChatService{
		DB:        d.DB,
		Guard:     d.Guard,
		Resolver:  d.Resolver,
		Paywall:   d.Paywall,
		Debts:     services.NewDebtService(d.DB),
		Sender:    d.Sender,
		Checkout:  d.Checkout,
		TrialDays: cfg.Paywall.TrialDays,
	}
	billingSvc := &services.BillingService{
		DB:          d.DB,
		Sender:      d.Sender,
		GraceLeeway: cfg.Paywall.GraceLeeway,
	}
	h := handlers.New(chatSvc, billingSvc, cfg.Billing.WebhookSecret, cfg.Billing.SigTolerance)

	hooks := r.Group("/webhooks")
	{
		hooks.POST("/whatsapp", h.PostInbound)
		hooks.POST("/billing", h.PostBillingEvent)
	}
}

// limitBody caps the request body size for all endpoints; reads past the cap
// error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
