package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection serializes transactions, like SQLite's single writer.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// tickingClock returns a clock that advances by one millisecond per call so
// consecutive messages never share a timestamp.
func tickingClock(start time.Time) func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(n.Add(1)) * time.Millisecond)
	}
}

var testDay = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	userID   string
	creature *domain.Creature
	conv     *domain.Conversation
}

func newFixture(t *testing.T, acct domain.Account) fixture {
	t.Helper()
	db := newSvcDB(t)
	ctx := context.Background()
	acct.UserID = "kid-1"
	if err := db.Create(&acct).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	cr, err := repo.CreateCreature(ctx, db, acct.UserID, "Sir Puddle", "A frog knight who guards the lily pond.", nil)
	if err != nil {
		t.Fatalf("seed creature: %v", err)
	}
	conv, _, err := repo.GetOrCreateConversation(ctx, db, cr.ID, acct.UserID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return fixture{db: db, userID: acct.UserID, creature: cr, conv: conv}
}

func (f fixture) account(t *testing.T) *domain.Account {
	t.Helper()
	a, err := repo.GetAccount(context.Background(), f.db, f.userID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a
}

func (f fixture) messages(t *testing.T) []domain.Message {
	t.Helper()
	ms, err := repo.ListMessages(context.Background(), f.db, f.conv.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	return ms
}

// fakeGenerator returns a fixed letter, or err, and records every request.
type fakeGenerator struct {
	mu     sync.Mutex
	text   string
	err    error
	calls  int
	last   GenerationRequest
	during func() // runs inside Generate, before returning
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	g.mu.Lock()
	g.calls++
	g.last = req
	during := g.during
	g.mu.Unlock()
	if during != nil {
		during()
	}
	if g.err != nil {
		return "", g.err
	}
	if g.text == "" {
		return "Ribbit! The moon was bright over the pond tonight.", nil
	}
	return g.text, nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeModerator struct {
	flagged bool
	err     error
}

func (m fakeModerator) Flagged(context.Context, string) (bool, error) { return m.flagged, m.err }

// fakeProcessor is an in-memory payment processor.
type fakeProcessor struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]*PaymentSession
	lastReq   CheckoutRequest
	createErr error
	gets      int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: map[string]*PaymentSession{}}
}

func (p *fakeProcessor) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.seq++
	id := "cs_test_" + strconv.Itoa(p.seq)
	p.lastReq = req
	p.sessions[id] = &PaymentSession{
		ID: id,
		Metadata: map[string]string{
			MetaUserID:     req.UserID,
			MetaCreditType: string(req.CreditKind),
			MetaCredits:    strconv.Itoa(req.Credits),
		},
	}
	return &CheckoutSession{ID: id, RedirectURL: "https://pay.example/" + id}, nil
}

func (p *fakeProcessor) GetSession(_ context.Context, id string) (*PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	s, ok := p.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProcessor) markPaid(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id].Paid = true
}
