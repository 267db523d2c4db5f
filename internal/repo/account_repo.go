// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the Ledger Store for account balances.
//
// Every balance mutation is a single guarded UPDATE: the precondition lives
// in the WHERE clause, so two concurrent debits can never both succeed
// against a balance that only covers one. A guard that matches no row
// returns ErrGuardFailed and leaves the row untouched.
//
// Functions:
//
//   - EnsureAccount(ctx, db, userID) -> error
//     Inserts a zero-balance account if none exists.
//
//   - GetAccount(ctx, db, userID) -> *domain.Account, error
//     Reads the ledger snapshot, or ErrNotFound.
//
//   - UseFreeReply(ctx, db, userID, today, limit) -> error
//     Consumes one free digital reply, rolling the counter over on a new date.
//
//   - DebitCredits(ctx, db, userID, kind, amount) -> error
//     Decrements a balance only if it covers amount.
//
//   - GrantCredits(ctx, db, userID, kind, amount) -> error
//     Increments a balance.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

func creditColumn(kind domain.CreditKind) string {
	if kind == domain.CreditPhysical {
		return "physical_credits"
	}
	return "digital_credits"
}

// EnsureAccount provisions an empty account for userID. It is a no-op when
// the account already exists, including under concurrent first requests.
func EnsureAccount(ctx context.Context, db *gorm.DB, userID string) error {
	now := time.Now().UTC()
	acct := &domain.Account{UserID: userID, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(acct).Error
}

// GetAccount returns the account snapshot for userID, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, userID string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UseFreeReply consumes one free digital reply for today. A stale
// daily_reset_date resets the counter to 1; otherwise the counter is
// incremented only while it is below limit.
func UseFreeReply(ctx context.Context, db *gorm.DB, userID, today string, limit int) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("user_id = ? AND (daily_reset_date <> ? OR daily_free_replies_used < ?)", userID, today, limit).
		Updates(map[string]any{
			"daily_free_replies_used": gorm.Expr("CASE WHEN daily_reset_date = ? THEN daily_free_replies_used + 1 ELSE 1 END", today),
			"daily_reset_date":        today,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// DebitCredits subtracts amount from the balance of the given kind, but only
// if the balance covers it.
func DebitCredits(ctx context.Context, db *gorm.DB, userID string, kind domain.CreditKind, amount int) error {
	if amount <= 0 {
		return errors.New("debit amount must be positive")
	}
	col := creditColumn(kind)
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("user_id = ? AND "+col+" >= ?", userID, amount).
		Updates(map[string]any{
			col:          gorm.Expr(col+" - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// GrantCredits adds amount to the balance of the given kind. It returns
// ErrNotFound if the account does not exist.
func GrantCredits(ctx context.Context, db *gorm.DB, userID string, kind domain.CreditKind, amount int) error {
	if amount <= 0 {
		return errors.New("grant amount must be positive")
	}
	col := creditColumn(kind)
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			col:          gorm.Expr(col+" + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
