package services

import (
	"context"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// GenerationRequest is a fully rendered prompt for the text generator.
type GenerationRequest struct {
	// System carries the creature persona, transcript and writing guidelines.
	System string
	// User is the short instruction sent as the user turn.
	User string
}

// Generator produces the body of a creature's letter.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Moderator screens a child's letter before it is stored or sent onward.
type Moderator interface {
	Flagged(ctx context.Context, text string) (bool, error)
}

// CheckoutRequest describes a hosted checkout for one credit pack.
type CheckoutRequest struct {
	UserID      string
	Email       string
	CreditKind  domain.CreditKind
	Credits     int
	AmountCents int64
	Currency    string
	ProductName string
	Description string
}

// CheckoutSession is the processor's handle for a started checkout.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// PaymentSession is the processor's view of a checkout session.
type PaymentSession struct {
	ID       string
	Paid     bool
	Metadata map[string]string
}

// PaymentProcessor creates hosted checkouts and reports their payment status.
type PaymentProcessor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (*PaymentSession, error)
}
