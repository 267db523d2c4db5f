// Purchase HTTP handlers.
//
//   - POST /purchases          (open a checkout for a credit pack)
//   - GET  /purchases          (purchase history)
//   - POST /purchases/confirm  (confirm after the checkout redirect)
//   - POST /webhooks/stripe    (confirm from the processor, signature-verified)
//
// Both confirmation paths are idempotent: credits are granted once per
// checkout session however often, and in whichever order, they arrive.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/payments"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

// PurchaseRequest is the JSON payload for buying a credit pack.
type PurchaseRequest struct {
	CreditType domain.CreditKind `json:"credit_type" binding:"required" enums:"digital,physical" example:"digital"`
}

// PurchaseResponse carries the hosted checkout to redirect the user to.
type PurchaseResponse struct {
	SessionID   string `json:"session_id" example:"cs_test_a1b2c3"`
	RedirectURL string `json:"redirect_url" example:"https://checkout.stripe.com/c/pay/cs_test_a1b2c3"`
	Credits     int    `json:"credits" example:"100"`
	AmountCents int64  `json:"amount_cents" example:"500"`
	Currency    string `json:"currency" example:"usd"`
}

// ConfirmPurchaseRequest names the checkout session to confirm.
type ConfirmPurchaseRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"cs_test_a1b2c3"`
}

// ConfirmPurchaseResponse reports the grant.
type ConfirmPurchaseResponse struct {
	CreditsAdded     int               `json:"credits_added" example:"100"`
	CreditType       domain.CreditKind `json:"credit_type" example:"digital"`
	// NewTotal is the balance right after the grant, the same on every repeat.
	NewTotal         int               `json:"new_total" example:"112"`
	AlreadyCompleted bool              `json:"already_completed"`
}

// ListPurchasesResponse wraps the purchase history.
type ListPurchasesResponse struct {
	Purchases []domain.PurchaseIntent `json:"purchases"`
}

// WebhookResponse acknowledges a processor delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// PurchaseCredits godoc
// @ID          purchaseCredits
// @Summary     Buy a credit pack
// @Description Opens a hosted checkout for 100 digital or 5 physical credits and records a pending purchase.
// @Tags        Purchases
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.PurchaseRequest  true  "Pack"
// @Success     201   {object}  handlers.PurchaseResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid credit type"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     502   {object}  handlers.ErrorResponse  "Payment processor unavailable"
// @Router      /purchases [post]
func (h *Handlers) PurchaseCredits(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "credit_type required")
		return
	}
	res, err := h.purchases.Start(c.Request.Context(), userID(c), middleware.UserEmail(c), req.CreditType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, PurchaseResponse{
		SessionID:   res.SessionID,
		RedirectURL: res.RedirectURL,
		Credits:     res.Pack.Credits,
		AmountCents: res.Pack.AmountCents,
		Currency:    res.Pack.Currency,
	})
}

// ListPurchases godoc
// @ID          listPurchases
// @Summary     Purchase history
// @Tags        Purchases
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query     int  false  "Max items"  minimum(1) maximum(50) default(10)
// @Success     200    {object}  handlers.ListPurchasesResponse
// @Failure     401    {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /purchases [get]
func (h *Handlers) ListPurchases(c *gin.Context) {
	items, err := h.purchases.History(c.Request.Context(), userID(c), limitParam(c, 10, 50))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.PurchaseIntent{}
	}
	ok(c, http.StatusOK, ListPurchasesResponse{Purchases: items})
}

// ConfirmPurchase godoc
// @ID          confirmPurchase
// @Summary     Confirm a purchase
// @Description Verifies payment with the processor and grants the pack once. Repeating the call is harmless.
// @Tags        Purchases
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ConfirmPurchaseRequest  true  "Session"
// @Success     200   {object}  handlers.ConfirmPurchaseResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402   {object}  handlers.ErrorResponse  "Payment not completed"
// @Failure     404   {object}  handlers.ErrorResponse  "Purchase not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Session does not match the purchase"
// @Failure     502   {object}  handlers.ErrorResponse  "Payment processor unavailable"
// @Router      /purchases/confirm [post]
func (h *Handlers) ConfirmPurchase(c *gin.Context) {
	var req ConfirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		return
	}
	out, err := h.purchases.ConfirmForUser(c.Request.Context(), userID(c), strings.TrimSpace(req.SessionID))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ConfirmPurchaseResponse{
		CreditsAdded:     out.CreditsAdded,
		CreditType:       out.CreditKind,
		NewTotal:         out.NewTotal,
		AlreadyCompleted: out.AlreadyCompleted,
	})
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Payment processor webhook
// @Description Verifies the Stripe-Signature header and confirms paid checkout sessions.
// @Description Events that do not concern a paid checkout are acknowledged and ignored.
// @Tags        Purchases
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature  header  string  true  "Webhook signature"
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload or signature"
// @Failure     500  {object}  handlers.ErrorResponse  "Confirmation failed; the processor retries"
// @Router      /webhooks/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	if h.webhooks == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "webhooks not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxWebhookBytes+1))
	if err != nil || int64(len(payload)) > h.maxWebhookBytes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable payload")
		return
	}

	ev, err := h.webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "invalid signature")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid event")
		return
	}
	lg := middleware.LoggerFrom(c)
	if ev == nil || !ev.Paid {
		ok(c, http.StatusOK, WebhookResponse{Received: true})
		return
	}

	out, err := h.purchases.Confirm(c.Request.Context(), ev.SessionID)
	switch {
	case errors.Is(err, services.ErrPurchaseNotFound):
		// Sessions opened elsewhere are not ours to grant.
		lg.Warn().Str("event_id", ev.ID).Msg("webhook for unknown checkout session")
	case err != nil:
		failErr(c, err)
		return
	default:
		lg.Info().
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Int("credits_added", out.CreditsAdded).
			Bool("already_completed", out.AlreadyCompleted).
			Msg("purchase confirmed by webhook")
	}
	ok(c, http.StatusOK, WebhookResponse{Received: true})
}
