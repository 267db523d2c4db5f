// Command server runs the fantasy letters HTTP API.
//
//	@title						Fantasy Letters API
//	@version					1.0
//	@description				Pen-pal letters between children and their fantasy creatures, paid for with digital and physical reply credits.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
//	@securityDefinitions.apikey	AdminToken
//	@in							header
//	@name						X-Admin-Token
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/config"
	httpapi "github.com/tbourn/fantasy-letters-backend/internal/http"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/openai"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/paramstore"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/payments"
	"github.com/tbourn/fantasy-letters-backend/internal/observability"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
	"github.com/tbourn/fantasy-letters-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	idempotencyPurgeInterval = time.Hour
	shutdownTimeout          = 15 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := sysutil.NewLogger(sysutil.LogOptions{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := sysutil.NewLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ext, err := buildIntegrations(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("integrations")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, ext, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go sysutil.RunEvery(ctx, idempotencyPurgeInterval, func(ctx context.Context) {
		purgeIdempotency(ctx, db, log)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// buildIntegrations wires the text generator, moderator and payment
// processor to the configured secret source.
func buildIntegrations(ctx context.Context, cfg config.Config, log zerolog.Logger) (httpapi.Integrations, error) {
	var ext httpapi.Integrations
	prefix := cfg.Secrets.ParamPrefix

	secrets, err := secretGetter(ctx, cfg)
	if err != nil {
		return ext, err
	}

	ai, err := openai.NewClient(secrets, prefix,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
		openai.WithSampling(cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Letters.GenerationTimeout}),
	)
	if err != nil {
		return ext, err
	}
	ext.Generator = ai
	if cfg.Letters.ModerationEnabled {
		ext.Moderator = ai
	}

	stripeKey, err := paramstore.Token(ctx, secrets, prefix+"/stripe-secret-key")
	if err != nil {
		log.Warn().Err(err).Msg("stripe secret key unavailable; purchases disabled")
		return ext, nil
	}
	// A missing webhook secret only disables the webhook route.
	webhookSecret, _ := paramstore.Token(ctx, secrets, prefix+"/stripe-webhook-secret")

	stripe, err := payments.NewStripe(payments.Config{
		SecretKey:     stripeKey,
		WebhookSecret: webhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		APIURL:        cfg.Stripe.APIURL,
	}, log)
	if err != nil {
		return ext, err
	}
	ext.Payments = stripe
	if webhookSecret != "" {
		ext.Webhooks = stripe
	} else {
		log.Warn().Msg("stripe webhook secret unset; /webhooks/stripe answers 404")
	}
	return ext, nil
}

// secretGetter returns SSM Parameter Store when SECRETS_SOURCE=ssm, and a
// static map built from the environment otherwise. Both are keyed by the
// same parameter names.
func secretGetter(ctx context.Context, cfg config.Config) (paramstore.Getter, error) {
	prefix := cfg.Secrets.ParamPrefix
	if cfg.Secrets.Source == "ssm" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return paramstore.New(awsssm.NewFromConfig(awsCfg))
	}
	return paramstore.Static{
		openai.TokenParameter(prefix):     cfg.OpenAI.APIKey,
		prefix + "/stripe-secret-key":     cfg.Stripe.SecretKey,
		prefix + "/stripe-webhook-secret": cfg.Stripe.WebhookSecret,
	}, nil
}

func purgeIdempotency(ctx context.Context, db *gorm.DB, log zerolog.Logger) {
	n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Msg("idempotency purge failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
	}
}
