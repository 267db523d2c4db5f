package repo

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

func TestEnsureAccount_IdempotentInsert(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	if err := EnsureAccount(ctx, db, "u1"); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	if err := GrantCredits(ctx, db, "u1", domain.CreditDigital, 5); err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}
	if err := EnsureAccount(ctx, db, "u1"); err != nil {
		t.Fatalf("EnsureAccount again: %v", err)
	}
	a, err := GetAccount(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.DigitalCredits != 5 {
		t.Fatalf("second EnsureAccount must not reset balance, got %d", a.DigitalCredits)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t, true)
	if _, err := GetAccount(context.Background(), db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUseFreeReply_IncrementsUpToLimit(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedAccount(t, db, domain.Account{UserID: "u1", DailyFreeRepliesUsed: 0, DailyResetDate: "2026-05-01"})

	for i := 0; i < 2; i++ {
		if err := UseFreeReply(ctx, db, "u1", "2026-05-01", 2); err != nil {
			t.Fatalf("UseFreeReply #%d: %v", i+1, err)
		}
	}
	if err := UseFreeReply(ctx, db, "u1", "2026-05-01", 2); !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("third free reply: want ErrGuardFailed, got %v", err)
	}
	a, _ := GetAccount(ctx, db, "u1")
	if a.DailyFreeRepliesUsed != 2 {
		t.Fatalf("used = %d; want 2", a.DailyFreeRepliesUsed)
	}
}

func TestUseFreeReply_RollsOverOnNewDate(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedAccount(t, db, domain.Account{UserID: "u1", DailyFreeRepliesUsed: 2, DailyResetDate: "2026-05-01"})

	if err := UseFreeReply(ctx, db, "u1", "2026-05-02", 2); err != nil {
		t.Fatalf("UseFreeReply after rollover: %v", err)
	}
	a, _ := GetAccount(ctx, db, "u1")
	if a.DailyFreeRepliesUsed != 1 || a.DailyResetDate != "2026-05-02" {
		t.Fatalf("after rollover got used=%d date=%s; want 1, 2026-05-02", a.DailyFreeRepliesUsed, a.DailyResetDate)
	}
}

func TestDebitCredits_GuardsBalance(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedAccount(t, db, domain.Account{UserID: "u1", DigitalCredits: 1, PhysicalCredits: 0})

	if err := DebitCredits(ctx, db, "u1", domain.CreditPhysical, 1); !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("physical debit on empty balance: want ErrGuardFailed, got %v", err)
	}
	if err := DebitCredits(ctx, db, "u1", domain.CreditDigital, 1); err != nil {
		t.Fatalf("digital debit: %v", err)
	}
	if err := DebitCredits(ctx, db, "u1", domain.CreditDigital, 1); !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("overdraft: want ErrGuardFailed, got %v", err)
	}
	if err := DebitCredits(ctx, db, "u1", domain.CreditDigital, 0); err == nil {
		t.Fatalf("zero debit must be rejected")
	}
	a, _ := GetAccount(ctx, db, "u1")
	if a.DigitalCredits != 0 {
		t.Fatalf("digital = %d; want 0", a.DigitalCredits)
	}
}

func TestGrantCredits_MissingAccount(t *testing.T) {
	db := newTestDB(t, true)
	if err := GrantCredits(context.Background(), db, "ghost", domain.CreditDigital, 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// Concurrent debits against a file-backed database: exactly balance-many
// succeed and the balance never goes negative.
func TestDebitCredits_ConcurrentNeverOverdraws(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	ctx := context.Background()
	const balance, attempts = 3, 12
	seedAccount(t, db, domain.Account{UserID: "u1", PhysicalCredits: balance})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, deny int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := DebitCredits(ctx, db, "u1", domain.CreditPhysical, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrGuardFailed):
				deny++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if ok != balance || deny != attempts-balance {
		t.Fatalf("ok=%d deny=%d; want %d and %d", ok, deny, balance, attempts-balance)
	}
	a, _ := GetAccount(ctx, db, "u1")
	if a.PhysicalCredits != 0 {
		t.Fatalf("balance = %d; want 0", a.PhysicalCredits)
	}
}
