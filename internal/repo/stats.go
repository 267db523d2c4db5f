// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// CreaturesStats returns the number of creatures owned by userID and the
// greatest UpdatedAt among them. maxUpdatedAt is nil when there are none.
func CreaturesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.Creature{}).Where("user_id = ?", userID))
}

// MessagesStats returns aggregate metadata for messages within a
// conversation: the total number of rows and the maximum UpdatedAt.
//
// Return values:
//   - count:        total messages for conversationID
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID))
}

func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
