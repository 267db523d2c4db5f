// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Creature
// model.
//
// Reads are scoped to the owner except GetCreatureByID, which callers use
// only after ownership was established through the conversation.
//
// Functions:
//
//   - CreateCreature(ctx, db, userID, name, backstory, image) -> *domain.Creature, error
//   - ListCreatures(ctx, db, userID) -> []domain.Creature, error
//   - GetCreature(ctx, db, id, userID) -> *domain.Creature, error
//   - GetCreatureByID(ctx, db, id) -> *domain.Creature, error
//   - TransitionCreatureState(ctx, db, id, to) -> bool, error
//     Guarded state change; false when the current state does not allow it.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// CreateCreature inserts a new idle creature owned by userID.
func CreateCreature(ctx context.Context, db *gorm.DB, userID, name, backstory string, image *string) (*domain.Creature, error) {
	now := time.Now().UTC()
	c := &domain.Creature{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		Backstory:      backstory,
		ImageReference: image,
		State:          domain.CreatureIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListCreatures returns the creatures owned by userID, newest first.
func ListCreatures(ctx context.Context, db *gorm.DB, userID string) ([]domain.Creature, error) {
	var out []domain.Creature
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// GetCreature fetches a creature by id scoped to its owner, or ErrNotFound.
func GetCreature(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Creature, error) {
	var c domain.Creature
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCreatureByID fetches a creature regardless of owner.
func GetCreatureByID(ctx context.Context, db *gorm.DB, id string) (*domain.Creature, error) {
	var c domain.Creature
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TransitionCreatureState moves a creature into state to when its current
// state allows it. It reports whether a row changed; a creature already in
// to, or in a state with no edge into to, is left as is.
func TransitionCreatureState(ctx context.Context, db *gorm.DB, id string, to domain.CreatureState) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Creature{}).
		Where("id = ? AND state IN ?", id, to.Sources()).
		Updates(map[string]any{"state": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
