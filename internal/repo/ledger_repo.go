// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only credit ledger.
//
// Entries are written in the same transaction as the balance mutation they
// describe. The (reference_type, reference_id, kind) triple is unique.
//
// Functions:
//
//   - AppendLedgerEntry(ctx, db, e) -> error
//     Inserts an entry; ErrDuplicate when the reference was already recorded.
//
//   - ListLedgerEntries(ctx, db, userID, limit) -> []domain.LedgerEntry, error
//     Newest first; limit <= 0 means all.
//
//   - GetLedgerEntryByReference(ctx, db, refType, refID, kind) -> *domain.LedgerEntry, error
//     Looks up the entry for one reference, or ErrNotFound.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// AppendLedgerEntry records an audit row. A second entry for the same
// (reference_type, reference_id, kind) returns ErrDuplicate.
func AppendLedgerEntry(ctx context.Context, db *gorm.DB, e *domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListLedgerEntries returns userID's ledger, newest first.
func ListLedgerEntries(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetLedgerEntryByReference returns the entry of kind written for
// (refType, refID), or ErrNotFound.
func GetLedgerEntryByReference(ctx context.Context, db *gorm.DB, refType, refID string, kind domain.LedgerEntryKind) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND kind = ?", refType, refID, kind).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
