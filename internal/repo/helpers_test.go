package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// newTestDB opens a private in-memory database. With migrate=true every
// table is created.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, a domain.Account) {
	t.Helper()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func seedConversation(t *testing.T, db *gorm.DB, userID string) (*domain.Creature, *domain.Conversation) {
	t.Helper()
	ctx := context.Background()
	cr, err := CreateCreature(ctx, db, userID, "Bramble", "A hedgehog who guards a moonlit library.", nil)
	if err != nil {
		t.Fatalf("seed creature: %v", err)
	}
	conv, _, err := GetOrCreateConversation(ctx, db, cr.ID, userID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return cr, conv
}
