// Package payments implements the purchase workflow's PaymentProcessor on
// top of Stripe Checkout and verifies Stripe webhook deliveries.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// Config configures the Stripe adapter.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// SuccessURL may contain {CHECKOUT_SESSION_ID}, which Stripe substitutes.
	SuccessURL string
	CancelURL  string
	// APIURL overrides the Stripe API base, for tests.
	APIURL     string
	HTTPClient *http.Client
	// WebhookTolerance bounds the accepted signature age; zero means Stripe's default.
	WebhookTolerance time.Duration
}

// Stripe is a services.PaymentProcessor backed by Stripe Checkout.
type Stripe struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	tolerance     time.Duration
}

// NewStripe builds a Stripe adapter. Network retries are disabled; callers
// bound each call with a context deadline.
func NewStripe(cfg Config, log zerolog.Logger) (*Stripe, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("payments: stripe secret key is required")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, errors.New("payments: success and cancel URLs are required")
	}

	bc := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     leveledLogger{log: log.With().Str("component", "stripe").Logger()},
	}
	if cfg.HTTPClient != nil {
		bc.HTTPClient = cfg.HTTPClient
	}
	if cfg.APIURL != "" {
		bc.URL = stripe.String(strings.TrimRight(cfg.APIURL, "/"))
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, bc),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, bc),
	}

	return &Stripe{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		tolerance:     cfg.WebhookTolerance,
	}, nil
}

// CreateCheckout opens a one-item payment session for the pack in req. An
// existing Stripe customer with the same email is reused.
func (s *Stripe) CreateCheckout(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.ProductName),
					Description: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(req.AmountCents),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata(services.MetaUserID, req.UserID)
	params.AddMetadata(services.MetaCreditType, string(req.CreditKind))
	params.AddMetadata(services.MetaCredits, fmt.Sprint(req.Credits))

	if req.Email != "" {
		customerID, err := s.findCustomer(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if customerID != "" {
			params.Customer = stripe.String(customerID)
		} else {
			params.CustomerEmail = stripe.String(req.Email)
		}
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("payments: create checkout session: %w", err)
	}
	return &services.CheckoutSession{ID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *Stripe) findCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := s.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("payments: list customers: %w", err)
	}
	return "", nil
}

// GetSession retrieves a checkout session and reports whether it is paid.
func (s *Stripe) GetSession(ctx context.Context, sessionID string) (*services.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("payments: retrieve checkout session: %w", err)
	}
	return toPaymentSession(sess), nil
}

func toPaymentSession(sess *stripe.CheckoutSession) *services.PaymentSession {
	return &services.PaymentSession{
		ID:       sess.ID,
		Paid:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: sess.Metadata,
	}
}

// WebhookEvent is a verified webhook delivery that concerns a checkout session.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	Paid      bool
}

// ParseWebhook verifies payload against the Stripe-Signature header. It
// returns (nil, nil) for verified events that do not complete a checkout.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, errors.New("payments: webhook secret not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                s.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return nil, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("payments: decode checkout session: %w", err)
	}
	return &WebhookEvent{
		ID:        ev.ID,
		Type:      string(ev.Type),
		SessionID: sess.ID,
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}

// leveledLogger routes stripe-go's internal logging into zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
func (l leveledLogger) Infof(format string, v ...interface{})  { l.log.Debug().Msgf(format, v...) }
func (l leveledLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l leveledLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
