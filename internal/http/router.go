// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware and route handlers. It owns middleware ordering and
// the route table; services are built here from the database and the
// external integrations passed in by main.
package httpapi

import (
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

	_ "github.com/tbourn/fantasy-letters-backend/docs"
	"github.com/tbourn/fantasy-letters-backend/internal/config"
	"github.com/tbourn/fantasy-letters-backend/internal/http/handlers"
	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

// Integrations are the external systems the services talk to.
type Integrations struct {
	Generator services.Generator
	// Moderator is nil unless moderation is enabled.
	Moderator services.Moderator
	Payments  services.PaymentProcessor
	// Webhooks is nil when no webhook secret is configured; the webhook
	// route then answers 404.
	Webhooks handlers.WebhookVerifier
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: request-scoped logger with redaction
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, security headers, gzip
//
// and, on the API group only:
//  8. Authenticate
//  9. Idempotency validator (before the limiters so replays bypass them)
//  10. Rate limiter per user (plus a stricter one on letter generation)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, ext Integrations, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		QuietPaths: []string{"/health", "/metrics"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{cfg.APIBasePath},
		EnablePolicy:    true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/webhooks"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(buildDeps(db, ext, cfg))

	// The processor authenticates itself with a signature, not a user token.
	r.POST("/webhooks/stripe", h.StripeWebhook)

	idem := handlers.DBIdempotency{DB: db}
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Authenticate(middleware.AuthOptions{
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowDevHeader: cfg.Auth.AllowDevHeader,
	}))
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Lookup))
	api.Use(middleware.NewRateLimiter("api", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler())
	{
		api.POST("/creatures", h.CreateCreature)
		api.GET("/creatures", h.ListCreatures)
		api.GET("/creatures/:id", h.GetCreature)
		api.POST("/creatures/:id/conversation", h.StartConversation)

		letters := middleware.NewRateLimiter("letters", cfg.Letters.RateRPS, cfg.Letters.RateBurst, middleware.KeyByUserOrIP())
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/letters", letters.Handler(), h.GenerateLetter)

		api.GET("/account", h.GetAccount)
		api.GET("/account/ledger", h.GetLedger)

		api.POST("/purchases", h.PurchaseCredits)
		api.GET("/purchases", h.ListPurchases)
		api.POST("/purchases/confirm", h.ConfirmPurchase)
	}

	// Admins come with either an admin-role token or the shared admin token.
	admin := groupWithPrefix(r, strings.TrimRight(cfg.APIBasePath, "/")+"/admin")
	admin.Use(
		middleware.Authenticate(middleware.AuthOptions{JWTSecret: cfg.Auth.JWTSecret, Optional: true}),
		middleware.RequireAdmin(cfg.Auth.AdminToken),
	)
	{
		admin.GET("/conversations", h.ListRecentConversations)
		admin.POST("/conversations/:id/letters", h.DigitizeLetter)
		admin.POST("/messages/:id/mailed", h.MarkMailed)
	}
}

// buildDeps constructs the services from the database and integrations.
func buildDeps(db *gorm.DB, ext Integrations, cfg config.Config) handlers.Deps {
	letters := services.NewLetterService(db, ext.Generator)
	letters.Moderator = ext.Moderator
	letters.FreeDailyReplies = cfg.Letters.FreeDailyReplies
	letters.MaxLetterRunes = cfg.Letters.MaxLetterRunes
	letters.MaxNotesRunes = cfg.Letters.MaxNotesRunes
	letters.GenerationTimeout = cfg.Letters.GenerationTimeout

	return handlers.Deps{
		Creatures:     services.NewCreatureService(db),
		Conversations: &services.ConversationService{DB: db},
		Letters:       letters,
		Accounts:      &services.AccountService{DB: db, FreeDailyReplies: cfg.Letters.FreeDailyReplies},
		Purchases:     &services.PurchaseService{DB: db, Processor: ext.Payments, Timeout: cfg.Stripe.PaymentTimeout},
		Postal:        &services.PostalService{DB: db, MaxLetterRunes: cfg.Letters.MaxLetterRunes},
		Webhooks:      ext.Webhooks,

		Idempotency:    handlers.DBIdempotency{DB: db},
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}

// corsMiddleware allows every origin without credentials when no allowlist
// is configured, and echoes allowlisted origins otherwise.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderAdminToken, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// limitBody caps request bodies at maxBytes; downstream reads past the cap
// fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
