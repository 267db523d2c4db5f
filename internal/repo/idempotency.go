// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
//
// A key is claimed before the operation runs (pending: empty resource_id)
// and completed with the resulting resource id, so overlapping requests
// carrying the same key never both perform the operation.
//
// Functions:
//
//   - GetIdempotency(ctx, db, userID, scope, key, now) -> *domain.Idempotency, error
//     Reads a live record, pending or completed, or ErrNotFound.
//
//   - CreateIdempotency(ctx, db, userID, scope, key, resourceID, status, ttl) -> *domain.Idempotency, error
//     Claims (empty resourceID) or records a key; ErrDuplicate if held.
//
//   - CompleteIdempotency(ctx, db, userID, scope, key, resourceID, status) -> error
//     Fills in a pending claim; ErrGuardFailed when none is pending.
//
//   - ReleaseIdempotency(ctx, db, userID, scope, key) -> error
//     Drops a pending claim after a failed request.
//
//   - PurgeExpiredIdempotency(ctx, db, now) -> int64, error
//     Deletes lapsed records.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (userID, scope, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", userID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record for (userID, scope, key) and returns
// ErrDuplicate on unique violation. An empty resourceID creates a pending
// claim that CompleteIdempotency later fills in. A lapsed record for the same
// key is replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND scope = ? AND key = ? AND expires_at <= ?", userID, scope, key, now).
			Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// CompleteIdempotency attaches resourceID to a pending claim. It returns
// ErrGuardFailed when no pending claim exists for the key.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int) error {
	res := db.WithContext(ctx).Model(&domain.Idempotency{}).
		Where("user_id = ? AND scope = ? AND key = ? AND resource_id = ''", userID, scope, key).
		Updates(map[string]any{"resource_id": resourceID, "status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// ReleaseIdempotency drops a pending claim so the key can be used again.
// Completed records are left alone.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND resource_id = ''", userID, scope, key).
		Delete(&domain.Idempotency{}).Error
}

// PurgeExpiredIdempotency deletes records whose TTL has elapsed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
