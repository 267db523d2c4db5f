package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

// AccountView is an account snapshot with the daily rollover applied.
type AccountView struct {
	UserID               string
	DigitalCredits       int
	PhysicalCredits      int
	DailyFreeRepliesUsed int
	FreeRepliesRemaining int
	Today                string
}

// AccountService exposes the caller's balances and ledger history.
type AccountService struct {
	DB               *gorm.DB
	FreeDailyReplies int
	Now              func() time.Time
}

// Get returns the caller's account, provisioning an empty one on first use.
func (s *AccountService) Get(ctx context.Context, userID string) (*AccountView, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if err := repo.EnsureAccount(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	a, err := repo.GetAccount(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	limit := s.FreeDailyReplies
	if limit <= 0 {
		limit = DefaultFreeDailyReplies
	}
	today := domain.DateOf(nowFunc(s.Now))
	return &AccountView{
		UserID:               a.UserID,
		DigitalCredits:       a.DigitalCredits,
		PhysicalCredits:      a.PhysicalCredits,
		DailyFreeRepliesUsed: a.FreeRepliesUsedOn(today),
		FreeRepliesRemaining: FreeRepliesRemaining(*a, today, limit),
		Today:                today,
	}, nil
}

// Ledger returns the caller's most recent ledger entries.
func (s *AccountService) Ledger(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return repo.ListLedgerEntries(ctx, s.DB, userID, limit)
}
