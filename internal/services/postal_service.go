package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

// PostalService covers the administrator's side of paper mail: digitizing
// letters children send by post, marking printed replies as mailed, and
// listing the most recently active conversations.
type PostalService struct {
	DB             *gorm.DB
	MaxLetterRunes int
	Now            func() time.Time
}

// DigitizeRequest carries a transcribed paper letter.
type DigitizeRequest struct {
	ConversationID string
	Content        string
	ImageReference string
	AdminNotes     string
}

// Digitize stores a child's paper letter as a received physical message,
// bumps the conversation and marks the creature as owing a reply. Nothing
// is charged.
func (s *PostalService) Digitize(ctx context.Context, req DigitizeRequest) (*domain.Message, error) {
	ctx, span := startSpan(ctx, "services/PostalService", "Digitize")
	defer span.End()

	content := normalizeLetter(req.Content)
	if content == "" {
		return nil, ErrEmptyLetter
	}
	if tooLong(content, s.MaxLetterRunes) {
		return nil, ErrTooLong
	}

	var msg *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := repo.GetConversation(ctx, tx, req.ConversationID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrConversationNotFound
			}
			return err
		}

		now := nowFunc(s.Now)
		msg = &domain.Message{
			ConversationID: conv.ID,
			Sender:         domain.SenderUser,
			Delivery:       domain.DeliveryPhysical,
			Content:        content,
			Status:         domain.InitialStatus(domain.SenderUser, domain.DeliveryPhysical),
			CostCredits:    0,
			ImageReference: optional(normalizeLine(req.ImageReference)),
			Summary:        optional(normalizeLetter(req.AdminNotes)),
			CreatedAt:      now,
		}
		if err := repo.CreateMessage(ctx, tx, msg); err != nil {
			return err
		}
		if err := repo.TouchConversation(ctx, tx, conv.ID, now); err != nil {
			return err
		}
		_, err = repo.TransitionCreatureState(ctx, tx, conv.CreatureID, domain.CreatureAwaitingReply)
		return err
	})
	if err != nil {
		if repo.IsConflict(err) {
			return nil, ErrConflictingState
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("conversation_id", msg.ConversationID).
		Str("message_id", msg.ID).
		Msg("paper letter digitized")
	return msg, nil
}

// MarkMailed moves a creature's printed letter from pending_physical to mailed.
func (s *PostalService) MarkMailed(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if !msg.Status.CanTransition(domain.StatusMailed) {
		return nil, ErrInvalidTransition
	}
	if err := repo.MarkMessageMailed(ctx, s.DB, messageID, nowFunc(s.Now)); err != nil {
		if errors.Is(err, repo.ErrGuardFailed) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return repo.GetMessage(ctx, s.DB, messageID)
}

// RecentConversations lists conversations across all users by last activity.
func (s *PostalService) RecentConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return repo.ListRecentConversations(ctx, s.DB, limit)
}
