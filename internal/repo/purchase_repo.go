// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PurchaseIntent model.
//
// Functions:
//
//   - CreatePurchaseIntent(ctx, db, p) -> error
//     Inserts a pending intent; ErrDuplicate for a reused session id.
//
//   - GetPurchaseBySession(ctx, db, sessionID) -> *domain.PurchaseIntent, error
//     Fetches by external session id, or ErrNotFound.
//
//   - CompletePurchase(ctx, db, id, at) -> error
//     Guarded pending -> completed flip; ErrGuardFailed when already completed.
//
//   - ListPurchases(ctx, db, userID, limit) -> []domain.PurchaseIntent, error
//     Newest first.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// CreatePurchaseIntent inserts a pending purchase. A second intent for the
// same external session returns ErrDuplicate.
func CreatePurchaseIntent(ctx context.Context, db *gorm.DB, p *domain.PurchaseIntent) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = domain.PurchasePending
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetPurchaseBySession fetches the intent for an external session id, or ErrNotFound.
func GetPurchaseBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.PurchaseIntent, error) {
	var p domain.PurchaseIntent
	if err := db.WithContext(ctx).Where("external_session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CompletePurchase flips a pending intent to completed. It returns
// ErrGuardFailed when the intent is not pending, which is how a duplicate
// confirmation is detected.
func CompletePurchase(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.PurchaseIntent{}).
		Where("id = ? AND status = ?", id, domain.PurchasePending).
		Updates(map[string]any{
			"status":       domain.PurchaseCompleted,
			"completed_at": at.UTC(),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// ListPurchases returns userID's purchases, newest first.
func ListPurchases(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.PurchaseIntent, error) {
	var out []domain.PurchaseIntent
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
