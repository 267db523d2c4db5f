// Package services – LetterService
//
// This file implements the letter generation workflow: a child asks a
// creature for a reply, the entitlement evaluator decides whether the reply
// is free, paid or refused, the generator writes the letter, and the letter
// is persisted and paid for in one transaction.
//
// Ordering:
//  1. Resolve conversation and creature (ownership enforced).
//  2. Pre-check entitlement on a fresh snapshot; refusals stop here with no
//     side effects and the generator is never called.
//  3. Save the child's letter, if any. This write survives a later
//     generation failure.
//  4. Generate on a context detached from client cancellation and bounded
//     by GenerationTimeout.
//  5. Commit: re-read the account, re-evaluate with one "today", insert the
//     creature letter, apply the guarded ledger update, write the audit row,
//     touch the conversation and advance the creature. A guard miss rolls the
//     whole transaction back and is retried once with the same text. When
//     the request carries an idempotency claim, the claim is completed with
//     the creature letter's id in the same transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/observability"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

const letterTracer = "services/LetterService"

// LetterRequest is the input of a reply request.
type LetterRequest struct {
	ConversationID string
	// CreatureID is optional; when set it must match the conversation's creature.
	CreatureID   string
	UserLetter   string
	ContextNotes string
	Delivery     domain.DeliveryKind
	// Idempotency is an optional pending claim taken by the caller.
	Idempotency *IdempotencyClaim
}

// IdempotencyClaim names a pending idempotency record owned by the request.
// The commit fills it in with the creature letter, so the charge and the
// record land together or not at all.
type IdempotencyClaim struct {
	Scope  string
	Key    string
	Status int
}

// LetterResult is the committed outcome of a reply request.
type LetterResult struct {
	Message       *domain.Message
	UserMessage   *domain.Message
	CostCredits   int
	UsedFreeReply bool
}

// LetterService runs the letter generation workflow.
type LetterService struct {
	DB        *gorm.DB
	Generator Generator
	// Moderator is optional; when set, a flagged letter is rejected up front.
	Moderator Moderator

	FreeDailyReplies  int
	MaxLetterRunes    int
	MaxNotesRunes     int
	GenerationTimeout time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewLetterService constructs a LetterService with default limits.
func NewLetterService(db *gorm.DB, gen Generator) *LetterService {
	return &LetterService{
		DB:                db,
		Generator:         gen,
		FreeDailyReplies:  DefaultFreeDailyReplies,
		MaxLetterRunes:    4000,
		MaxNotesRunes:     1000,
		GenerationTimeout: 60 * time.Second,
	}
}

// Generate produces, persists and pays for the creature's next letter.
func (s *LetterService) Generate(ctx context.Context, userID string, req LetterRequest) (*LetterResult, error) {
	ctx, span := startSpan(ctx, letterTracer, "Generate",
		trace.WithAttributes(
			attribute.String("conversation.id", req.ConversationID),
			attribute.String("user.id", userID),
			attribute.String("delivery", string(req.Delivery)),
		),
	)
	defer span.End()

	res, err := s.generate(ctx, userID, req)
	if err != nil {
		observability.Fail(span, err)
	}
	return res, err
}

func (s *LetterService) generate(ctx context.Context, userID string, req LetterRequest) (*LetterResult, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if !req.Delivery.Valid() {
		return nil, ErrInvalidDeliveryKind
	}
	letter := normalizeLetter(req.UserLetter)
	notes := normalizeLetter(req.ContextNotes)
	if tooLong(letter, s.MaxLetterRunes) || tooLong(notes, s.MaxNotesRunes) {
		return nil, ErrTooLong
	}

	conv, creature, err := s.resolve(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// Pre-check: refuse before any side effect or generator call.
	if err := repo.EnsureAccount(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	acct, err := repo.GetAccount(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if d := Evaluate(*acct, req.Delivery, domain.DateOf(s.now()), s.freeLimit()); !d.Allowed {
		observability.EntitlementDenied.WithLabelValues(string(req.Delivery)).Inc()
		return nil, fmt.Errorf("%w: %s", ErrInsufficientCredits, d.Reason)
	}

	if letter != "" && s.Moderator != nil {
		flagged, err := s.Moderator.Flagged(ctx, letter)
		if err != nil {
			return nil, fmt.Errorf("%w: moderation: %v", ErrGenerationFailed, err)
		}
		if flagged {
			return nil, ErrContentRejected
		}
	}

	history, err := repo.ListMessages(ctx, s.DB, conv.ID, 0)
	if err != nil {
		return nil, err
	}

	var userMsg *domain.Message
	if letter != "" {
		userMsg = &domain.Message{
			ConversationID: conv.ID,
			Sender:         domain.SenderUser,
			Delivery:       domain.DeliveryDigital,
			Content:        letter,
			Status:         domain.StatusSent,
			CreatedAt:      s.now(),
		}
		if err := repo.CreateMessage(ctx, s.DB, userMsg); err != nil {
			return nil, err
		}
	}

	// From here on the work is finished even if the caller goes away.
	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout())
	defer cancel()

	text, err := s.write(gctx, *creature, history, letter, notes, req.Delivery)
	if err != nil {
		return nil, err
	}

	var res *LetterResult
	for attempt := 1; ; attempt++ {
		res, err = s.commit(gctx, userID, conv, creature, req, text, notes)
		if errors.Is(err, ErrConflictingState) {
			observability.LedgerConflicts.WithLabelValues("letter").Inc()
			if attempt < 2 {
				zerolog.Ctx(ctx).Warn().
					Str("conversation_id", conv.ID).
					Str("user_id", userID).
					Msg("ledger update lost a race; retrying commit")
				continue
			}
		}
		break
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			observability.EntitlementDenied.WithLabelValues(string(req.Delivery)).Inc()
		}
		return nil, err
	}
	res.UserMessage = userMsg

	charge := "credit"
	if res.UsedFreeReply {
		charge = "free"
	}
	observability.LettersGenerated.WithLabelValues(string(req.Delivery), charge).Inc()
	zerolog.Ctx(ctx).Info().
		Str("conversation_id", conv.ID).
		Str("user_id", userID).
		Str("delivery_kind", string(req.Delivery)).
		Int("cost", res.CostCredits).
		Bool("free_reply", res.UsedFreeReply).
		Msg("letter generated")
	return res, nil
}

// resolve loads the caller's conversation and its creature.
func (s *LetterService) resolve(ctx context.Context, userID string, req LetterRequest) (*domain.Conversation, *domain.Creature, error) {
	conv, err := repo.GetConversation(ctx, s.DB, req.ConversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, err
	}
	if conv.UserID != userID {
		return nil, nil, ErrConversationNotFound
	}
	if req.CreatureID != "" && req.CreatureID != conv.CreatureID {
		return nil, nil, ErrCreatureNotFound
	}
	creature, err := repo.GetCreatureByID(ctx, s.DB, conv.CreatureID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrCreatureNotFound
		}
		return nil, nil, err
	}
	return conv, creature, nil
}

// write calls the generator once.
func (s *LetterService) write(ctx context.Context, creature domain.Creature, history []domain.Message, letter, notes string, delivery domain.DeliveryKind) (string, error) {
	ctx, span := startSpan(ctx, letterTracer, "write")
	defer span.End()

	start := time.Now()
	text, err := s.Generator.Generate(ctx, BuildPrompt(creature, history, letter, notes, delivery))
	if err == nil {
		text = normalizeLetter(text)
		if text == "" {
			err = errors.New("generator returned no text")
		}
	}
	if err != nil {
		observability.GenerationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		observability.Fail(span, err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	observability.GenerationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return text, nil
}

// commit persists the creature letter and pays for it atomically.
func (s *LetterService) commit(ctx context.Context, userID string, conv *domain.Conversation, creature *domain.Creature, req LetterRequest, text, notes string) (*LetterResult, error) {
	ctx, span := startSpan(ctx, letterTracer, "commit")
	defer span.End()
	delivery := req.Delivery

	var out LetterResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		today := domain.DateOf(now)

		acct, err := repo.GetAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		d := Evaluate(*acct, delivery, today, s.freeLimit())
		if !d.Allowed {
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, d.Reason)
		}

		msg := &domain.Message{
			ConversationID: conv.ID,
			Sender:         domain.SenderCreature,
			Delivery:       delivery,
			Content:        text,
			Status:         domain.InitialStatus(domain.SenderCreature, delivery),
			CostCredits:    d.Cost,
			ContextNotes:   optional(notes),
			CreatedAt:      now,
		}
		if err := repo.CreateMessage(ctx, tx, msg); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			UserID:        userID,
			CreditKind:    domain.CreditKindFor(delivery),
			ReferenceType: domain.RefMessage,
			ReferenceID:   msg.ID,
			CreatedAt:     now,
		}
		entry.BalanceAfter = acct.Balance(entry.CreditKind) - d.Cost
		if d.UsesFree {
			err = repo.UseFreeReply(ctx, tx, userID, today, s.freeLimit())
			entry.Kind = domain.EntryFreeReply
		} else {
			err = repo.DebitCredits(ctx, tx, userID, entry.CreditKind, d.Cost)
			entry.Kind, entry.Amount = domain.EntryDebit, -d.Cost
		}
		if errors.Is(err, repo.ErrGuardFailed) {
			return ErrConflictingState
		}
		if err != nil {
			return err
		}
		if err := repo.AppendLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
		if c := req.Idempotency; c != nil {
			err := repo.CompleteIdempotency(ctx, tx, userID, c.Scope, c.Key, msg.ID, c.Status)
			if errors.Is(err, repo.ErrGuardFailed) {
				return ErrRequestInProgress
			}
			if err != nil {
				return err
			}
		}

		if err := repo.TouchConversation(ctx, tx, conv.ID, now); err != nil {
			return err
		}
		if _, err := repo.TransitionCreatureState(ctx, tx, creature.ID, domain.CreatureWaitingForLetter); err != nil {
			return err
		}

		out = LetterResult{Message: msg, CostCredits: d.Cost, UsedFreeReply: d.UsesFree}
		return nil
	})
	if err != nil {
		if repo.IsConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflictingState, err)
		}
		return nil, err
	}
	return &out, nil
}

func (s *LetterService) now() time.Time { return nowFunc(s.Now) }

func (s *LetterService) freeLimit() int {
	if s.FreeDailyReplies <= 0 {
		return DefaultFreeDailyReplies
	}
	return s.FreeDailyReplies
}

func (s *LetterService) timeout() time.Duration {
	if s.GenerationTimeout <= 0 {
		return 60 * time.Second
	}
	return s.GenerationTimeout
}
