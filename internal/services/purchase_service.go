// Package services – PurchaseService
//
// This file implements the two-phase purchase workflow. Phase A opens a
// hosted checkout and records a pending PurchaseIntent keyed by the
// processor's session id. Phase B, driven by a redirect or a processor
// webhook, verifies payment and grants credits exactly once: the
// pending -> completed flip and the balance increment share one transaction,
// and a confirmation that finds the intent already completed is a no-op that
// reports the same outcome.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/observability"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

const purchaseTracer = "services/PurchaseService"

// Metadata keys attached to checkout sessions.
const (
	MetaUserID     = "userId"
	MetaCreditType = "creditType"
	MetaCredits    = "credits"
)

// CreditPack is a purchasable bundle of credits.
type CreditPack struct {
	Kind        domain.CreditKind
	Credits     int
	AmountCents int64
	Currency    string
	Name        string
	Description string
}

var creditPacks = map[domain.CreditKind]CreditPack{
	domain.CreditDigital: {
		Kind:        domain.CreditDigital,
		Credits:     100,
		AmountCents: 500,
		Currency:    "usd",
		Name:        "100 Digital Reply Credits",
		Description: "Get 100 additional digital replies from your magical creatures",
	},
	domain.CreditPhysical: {
		Kind:        domain.CreditPhysical,
		Credits:     5,
		AmountCents: 500,
		Currency:    "usd",
		Name:        "5 Physical Letter Credits",
		Description: "Get 5 physical letters mailed from your magical creatures",
	},
}

// PackFor returns the catalog pack for kind, or ErrInvalidCreditKind.
func PackFor(kind domain.CreditKind) (CreditPack, error) {
	p, ok := creditPacks[kind]
	if !ok {
		return CreditPack{}, fmt.Errorf("%w: %q", ErrInvalidCreditKind, kind)
	}
	return p, nil
}

// CheckoutResult is returned by Start.
type CheckoutResult struct {
	SessionID   string
	RedirectURL string
	Pack        CreditPack
}

// PurchaseOutcome is returned by Confirm.
type PurchaseOutcome struct {
	CreditsAdded int
	CreditKind   domain.CreditKind
	NewTotal     int
	// AlreadyCompleted is true when this confirmation changed nothing.
	AlreadyCompleted bool
}

// PurchaseService runs the purchase workflow.
type PurchaseService struct {
	DB        *gorm.DB
	Processor PaymentProcessor
	// Timeout bounds each processor call.
	Timeout time.Duration
	Now     func() time.Time
}

// Start opens a checkout for one pack of kind and records the pending intent.
func (s *PurchaseService) Start(ctx context.Context, userID, email string, kind domain.CreditKind) (*CheckoutResult, error) {
	ctx, span := startSpan(ctx, purchaseTracer, "Start",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("credit_kind", string(kind)),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	pack, err := PackFor(kind)
	if err != nil {
		return nil, err
	}
	if s.Processor == nil {
		return nil, fmt.Errorf("%w: no payment processor configured", ErrPaymentUnavailable)
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	sess, err := s.Processor.CreateCheckout(pctx, CheckoutRequest{
		UserID:      userID,
		Email:       email,
		CreditKind:  pack.Kind,
		Credits:     pack.Credits,
		AmountCents: pack.AmountCents,
		Currency:    pack.Currency,
		ProductName: pack.Name,
		Description: pack.Description,
	})
	if err != nil {
		observability.Fail(span, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	intent := &domain.PurchaseIntent{
		UserID:            userID,
		ExternalSessionID: sess.ID,
		CreditKind:        pack.Kind,
		CreditsAmount:     pack.Credits,
		AmountPaidCents:   pack.AmountCents,
		Currency:          pack.Currency,
		Status:            domain.PurchasePending,
	}
	if err := repo.CreatePurchaseIntent(ctx, s.DB, intent); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: session %s already recorded", ErrConflictingState, sess.ID)
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("session_id", sess.ID).
		Str("credit_kind", string(pack.Kind)).
		Msg("checkout started")
	return &CheckoutResult{SessionID: sess.ID, RedirectURL: sess.RedirectURL, Pack: pack}, nil
}

// Confirm verifies the session with the processor and grants its credits
// once. It is safe to call any number of times, concurrently, from the
// redirect path and the webhook path alike.
func (s *PurchaseService) Confirm(ctx context.Context, sessionID string) (*PurchaseOutcome, error) {
	return s.confirm(ctx, "", sessionID)
}

// ConfirmForUser is Confirm restricted to intents owned by userID.
func (s *PurchaseService) ConfirmForUser(ctx context.Context, userID, sessionID string) (*PurchaseOutcome, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.confirm(ctx, userID, sessionID)
}

func (s *PurchaseService) confirm(ctx context.Context, userID, sessionID string) (*PurchaseOutcome, error) {
	ctx, span := startSpan(ctx, purchaseTracer, "Confirm",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	if sessionID == "" {
		return nil, ErrPurchaseNotFound
	}
	intent, err := repo.GetPurchaseBySession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	if userID != "" && intent.UserID != userID {
		return nil, ErrPurchaseNotFound
	}

	if intent.Status == domain.PurchaseCompleted {
		observability.PurchaseConfirmations.WithLabelValues("duplicate").Inc()
		return completedOutcome(ctx, s.DB, intent)
	}

	if s.Processor == nil {
		return nil, fmt.Errorf("%w: no payment processor configured", ErrPaymentUnavailable)
	}
	pctx, cancel := context.WithTimeout(ctx, s.timeout())
	sess, err := s.Processor.GetSession(pctx, sessionID)
	cancel()
	if err != nil {
		observability.Fail(span, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if !sess.Paid {
		observability.PurchaseConfirmations.WithLabelValues("unpaid").Inc()
		return nil, ErrPaymentNotCompleted
	}
	if err := metadataMatches(sess.Metadata, intent); err != nil {
		return nil, err
	}

	var out *PurchaseOutcome
	for attempt := 1; ; attempt++ {
		out, err = s.grant(ctx, intent)
		if errors.Is(err, ErrConflictingState) && attempt < 2 {
			observability.LedgerConflicts.WithLabelValues("purchase").Inc()
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	if out.AlreadyCompleted {
		observability.PurchaseConfirmations.WithLabelValues("duplicate").Inc()
	} else {
		observability.PurchaseConfirmations.WithLabelValues("completed").Inc()
		observability.CreditsGranted.WithLabelValues(string(out.CreditKind)).Add(float64(out.CreditsAdded))
		zerolog.Ctx(ctx).Info().
			Str("user_id", intent.UserID).
			Str("session_id", sessionID).
			Int("credits", out.CreditsAdded).
			Int("new_total", out.NewTotal).
			Msg("purchase completed")
	}
	return out, nil
}

// grant flips the intent to completed and credits the account in one
// transaction. Losing the flip to a concurrent confirmation is reported as
// AlreadyCompleted rather than as an error.
func (s *PurchaseService) grant(ctx context.Context, intent *domain.PurchaseIntent) (*PurchaseOutcome, error) {
	var out *PurchaseOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := nowFunc(s.Now)
		err := repo.CompletePurchase(ctx, tx, intent.ID, now)
		if errors.Is(err, repo.ErrGuardFailed) {
			out, err = completedOutcome(ctx, tx, intent)
			return err
		}
		if err != nil {
			return err
		}

		if err := repo.EnsureAccount(ctx, tx, intent.UserID); err != nil {
			return err
		}
		if err := repo.GrantCredits(ctx, tx, intent.UserID, intent.CreditKind, intent.CreditsAmount); err != nil {
			return err
		}
		acct, err := repo.GetAccount(ctx, tx, intent.UserID)
		if err != nil {
			return err
		}
		total := acct.Balance(intent.CreditKind)
		err = repo.AppendLedgerEntry(ctx, tx, &domain.LedgerEntry{
			UserID:        intent.UserID,
			Kind:          domain.EntryGrant,
			CreditKind:    intent.CreditKind,
			Amount:        intent.CreditsAmount,
			BalanceAfter:  total,
			ReferenceType: domain.RefPurchase,
			ReferenceID:   intent.ID,
			CreatedAt:     now,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrConflictingState
		}
		if err != nil {
			return err
		}
		out = &PurchaseOutcome{CreditsAdded: intent.CreditsAmount, CreditKind: intent.CreditKind, NewTotal: total}
		return nil
	})
	if err != nil {
		if repo.IsConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflictingState, err)
		}
		return nil, err
	}
	return out, nil
}

// completedOutcome reports an already completed purchase without mutating
// anything. NewTotal is the balance recorded when the pack was granted, so
// every repeat returns the first confirmation's outcome.
func completedOutcome(ctx context.Context, db *gorm.DB, intent *domain.PurchaseIntent) (*PurchaseOutcome, error) {
	out := &PurchaseOutcome{CreditsAdded: intent.CreditsAmount, CreditKind: intent.CreditKind, AlreadyCompleted: true}
	e, err := repo.GetLedgerEntryByReference(ctx, db, domain.RefPurchase, intent.ID, domain.EntryGrant)
	switch {
	case err == nil:
		out.NewTotal = e.BalanceAfter
	case errors.Is(err, repo.ErrNotFound):
		// Completed without a grant row: fall back to the live balance.
		acct, err := repo.GetAccount(ctx, db, intent.UserID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if acct != nil {
			out.NewTotal = acct.Balance(intent.CreditKind)
		}
	default:
		return nil, err
	}
	return out, nil
}

// History returns userID's purchases, newest first.
func (s *PurchaseService) History(ctx context.Context, userID string, limit int) ([]domain.PurchaseIntent, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return repo.ListPurchases(ctx, s.DB, userID, limit)
}

func (s *PurchaseService) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 15 * time.Second
	}
	return s.Timeout
}

// metadataMatches checks whatever checkout metadata the processor echoes
// back against the recorded intent. Absent keys are not an error.
func metadataMatches(meta map[string]string, intent *domain.PurchaseIntent) error {
	if v, ok := meta[MetaUserID]; ok && v != intent.UserID {
		return fmt.Errorf("%w: session user does not match purchase", ErrConflictingState)
	}
	if v, ok := meta[MetaCreditType]; ok && domain.CreditKind(v) != intent.CreditKind {
		return fmt.Errorf("%w: session credit type does not match purchase", ErrConflictingState)
	}
	if v, ok := meta[MetaCredits]; ok && v != strconv.Itoa(intent.CreditsAmount) {
		return fmt.Errorf("%w: session credits do not match purchase", ErrConflictingState)
	}
	return nil
}
