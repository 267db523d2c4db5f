package handlers

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

var (
	// errNoReplay reports that no completed record exists for a key.
	errNoReplay = errors.New("no recorded result")
	// errKeyClaimed reports that another request already holds the key.
	errKeyClaimed = errors.New("idempotency key already claimed")
)

// DBIdempotency is the GORM-backed IdempotencyStore.
type DBIdempotency struct {
	DB *gorm.DB
}

// Lookup reports whether a live completed record exists. Pending claims do
// not count. It matches middleware.IdempotencyLookup.
func (s DBIdempotency) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.ResourceID != "", nil
}

// Replay returns the creature letter recorded for the key, or errNoReplay.
func (s DBIdempotency) Replay(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Message, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errNoReplay
	}
	if err != nil {
		return nil, err
	}
	if rec.ResourceID == "" {
		return nil, errNoReplay
	}
	m, err := repo.GetMessage(ctx, s.DB, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errNoReplay
	}
	return m, err
}

// Claim takes the key for one request before any work starts. It returns
// errKeyClaimed when a live record, pending or completed, already holds it.
func (s DBIdempotency) Claim(ctx context.Context, userID, scope, key string, ttl time.Duration) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, "", 0, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return errKeyClaimed
	}
	return err
}

// Release drops a pending claim after a failed request so the client can
// retry with the same key.
func (s DBIdempotency) Release(ctx context.Context, userID, scope, key string) error {
	return repo.ReleaseIdempotency(ctx, s.DB, userID, scope, key)
}
