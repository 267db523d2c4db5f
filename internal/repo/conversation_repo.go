// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// A user has at most one conversation per creature, enforced by a unique
// (creature_id, user_id) index; concurrent starters converge on one row.
//
// Functions:
//
//   - GetOrCreateConversation(ctx, db, creatureID, userID) -> *domain.Conversation, bool, error
//     Returns the existing conversation or inserts one; the bool reports creation.
//
//   - GetConversation(ctx, db, id) -> *domain.Conversation, error
//     Fetches by id, or ErrNotFound.
//
//   - TouchConversation(ctx, db, id, at) -> error
//     Bumps last_activity_at.
//
//   - ListRecentConversations(ctx, db, limit) -> []domain.Conversation, error
//     Cross-user listing by last activity, for administrators.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// GetOrCreateConversation returns the conversation for (creatureID, userID),
// inserting it first if absent. The insert relies on the unique
// (creature_id, user_id) index, so concurrent callers converge on one row.
// created reports whether this call inserted it.
func GetOrCreateConversation(ctx context.Context, db *gorm.DB, creatureID, userID string) (conv *domain.Conversation, created bool, err error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:             uuid.NewString(),
		CreatureID:     creatureID,
		UserID:         userID,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "creature_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var out domain.Conversation
	if err := db.WithContext(ctx).
		Where("creature_id = ? AND user_id = ?", creatureID, userID).
		First(&out).Error; err != nil {
		return nil, false, err
	}
	return &out, res.RowsAffected > 0 && out.ID == c.ID, nil
}

// GetConversation fetches a conversation by id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchConversation sets last_activity_at to at.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_activity_at": at.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentConversations returns conversations across all users ordered by
// last activity, most recent first, with their creature preloaded.
func ListRecentConversations(ctx context.Context, db *gorm.DB, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	q := db.WithContext(ctx).
		Preload("Creature").
		Order("last_activity_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
