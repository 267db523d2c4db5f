package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

const conversationTracer = "services/ConversationService"

// ConversationService opens conversations and reads their transcripts.
type ConversationService struct {
	DB *gorm.DB
}

// StartOrFetch returns the caller's conversation with creatureID, creating
// it on first contact. A newly opened conversation moves an idle creature
// to waiting_for_letter. created reports whether this call opened it.
func (s *ConversationService) StartOrFetch(ctx context.Context, userID, creatureID string) (conv *domain.Conversation, created bool, err error) {
	ctx, span := startSpan(ctx, conversationTracer, "StartOrFetch",
		trace.WithAttributes(
			attribute.String("creature.id", creatureID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, false, ErrNotAuthenticated
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetCreature(ctx, tx, creatureID, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCreatureNotFound
			}
			return err
		}
		c, isNew, err := repo.GetOrCreateConversation(ctx, tx, creatureID, userID)
		if err != nil {
			return err
		}
		if isNew {
			if _, err := repo.TransitionCreatureState(ctx, tx, creatureID, domain.CreatureWaitingForLetter); err != nil {
				return err
			}
		}
		conv, created = c, isNew
		return nil
	})
	if err != nil && repo.IsConflict(err) {
		// A concurrent first contact won; the row exists now.
		c, _, gerr := repo.GetOrCreateConversation(ctx, s.DB, creatureID, userID)
		if gerr != nil {
			return nil, false, ErrConflictingState
		}
		return c, false, nil
	}
	return conv, created, err
}

// owned loads conversationID and checks that userID owns it.
func (s *ConversationService) owned(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListMessages returns the full transcript, ordered by creation time.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return repo.ListMessages(ctx, s.DB, conversationID, 0)
}

// ListMessagesPage returns one page of the transcript and the total count.
func (s *ConversationService) ListMessagesPage(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	ctx, span := startSpan(ctx, conversationTracer, "ListMessagesPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// MessagesStats returns count and last modification time for ETag generation.
func (s *ConversationService) MessagesStats(ctx context.Context, userID, conversationID string) (int64, *time.Time, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return 0, nil, err
	}
	return repo.MessagesStats(ctx, s.DB, conversationID)
}
