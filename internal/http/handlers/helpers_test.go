package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/payments"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

const testUser = "user-1"

// ---------- stubs ----------

type stubCreatures struct {
	create func(ctx context.Context, userID, name, backstory, imageRef string) (*domain.Creature, error)
	list   func(ctx context.Context, userID string) ([]domain.Creature, error)
	get    func(ctx context.Context, userID, id string) (*domain.Creature, error)
	stats  func(ctx context.Context, userID string) (int64, *time.Time, error)
}

func (s stubCreatures) Create(ctx context.Context, userID, name, backstory, imageRef string) (*domain.Creature, error) {
	return s.create(ctx, userID, name, backstory, imageRef)
}
func (s stubCreatures) List(ctx context.Context, userID string) ([]domain.Creature, error) {
	return s.list(ctx, userID)
}
func (s stubCreatures) Get(ctx context.Context, userID, id string) (*domain.Creature, error) {
	return s.get(ctx, userID, id)
}
func (s stubCreatures) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, services.ErrForbidden
	}
	return s.stats(ctx, userID)
}

type stubConversations struct {
	start func(ctx context.Context, userID, creatureID string) (*domain.Conversation, bool, error)
	page  func(ctx context.Context, userID, id string, page, size int) ([]domain.Message, int64, error)
	stats func(ctx context.Context, userID, id string) (int64, *time.Time, error)
}

func (s stubConversations) StartOrFetch(ctx context.Context, userID, creatureID string) (*domain.Conversation, bool, error) {
	return s.start(ctx, userID, creatureID)
}
func (s stubConversations) ListMessagesPage(ctx context.Context, userID, id string, page, size int) ([]domain.Message, int64, error) {
	return s.page(ctx, userID, id, page, size)
}
func (s stubConversations) MessagesStats(ctx context.Context, userID, id string) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, services.ErrForbidden
	}
	return s.stats(ctx, userID, id)
}

type stubLetters func(ctx context.Context, userID string, req services.LetterRequest) (*services.LetterResult, error)

func (f stubLetters) Generate(ctx context.Context, userID string, req services.LetterRequest) (*services.LetterResult, error) {
	return f(ctx, userID, req)
}

type stubAccounts func(ctx context.Context, userID string) (*services.AccountView, error)

func (f stubAccounts) Get(ctx context.Context, userID string) (*services.AccountView, error) {
	return f(ctx, userID)
}

func (f stubAccounts) Ledger(_ context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	out := make([]domain.LedgerEntry, 0, limit)
	for i := 0; i < limit && i < 3; i++ {
		out = append(out, domain.LedgerEntry{UserID: userID, Kind: domain.EntryDebit, CreditKind: domain.CreditDigital, Amount: -1})
	}
	return out, nil
}

type stubPurchases struct {
	start       func(ctx context.Context, userID, email string, kind domain.CreditKind) (*services.CheckoutResult, error)
	confirm     func(ctx context.Context, sessionID string) (*services.PurchaseOutcome, error)
	confirmUser func(ctx context.Context, userID, sessionID string) (*services.PurchaseOutcome, error)
	history     func(ctx context.Context, userID string, limit int) ([]domain.PurchaseIntent, error)
}

func (s stubPurchases) Start(ctx context.Context, userID, email string, kind domain.CreditKind) (*services.CheckoutResult, error) {
	return s.start(ctx, userID, email, kind)
}
func (s stubPurchases) Confirm(ctx context.Context, sessionID string) (*services.PurchaseOutcome, error) {
	return s.confirm(ctx, sessionID)
}
func (s stubPurchases) ConfirmForUser(ctx context.Context, userID, sessionID string) (*services.PurchaseOutcome, error) {
	return s.confirmUser(ctx, userID, sessionID)
}
func (s stubPurchases) History(ctx context.Context, userID string, limit int) ([]domain.PurchaseIntent, error) {
	return s.history(ctx, userID, limit)
}

type stubPostal struct {
	digitize func(ctx context.Context, req services.DigitizeRequest) (*domain.Message, error)
	mailed   func(ctx context.Context, id string) (*domain.Message, error)
	recent   func(ctx context.Context, limit int) ([]domain.Conversation, error)
}

func (s stubPostal) Digitize(ctx context.Context, req services.DigitizeRequest) (*domain.Message, error) {
	return s.digitize(ctx, req)
}
func (s stubPostal) MarkMailed(ctx context.Context, id string) (*domain.Message, error) {
	return s.mailed(ctx, id)
}
func (s stubPostal) RecentConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	return s.recent(ctx, limit)
}

type stubWebhooks func(payload []byte, sig string) (*payments.WebhookEvent, error)

func (f stubWebhooks) ParseWebhook(payload []byte, sig string) (*payments.WebhookEvent, error) {
	return f(payload, sig)
}

// ---------- router plumbing ----------

// newTestRouter mounts every route the way the real router does, with the
// caller identity fixed to testUser (and email kid@example.com).
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		c.Next()
	})
	r.POST("/webhooks/stripe", h.StripeWebhook)

	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUser)
		c.Set(middleware.UserEmailKey, "kid@example.com")
		c.Next()
	})
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api.POST("/creatures", h.CreateCreature)
	api.GET("/creatures", h.ListCreatures)
	api.GET("/creatures/:id", h.GetCreature)
	api.POST("/creatures/:id/conversation", h.StartConversation)
	api.GET("/conversations/:id/messages", h.ListMessages)
	api.POST("/conversations/:id/letters", h.GenerateLetter)
	api.GET("/account", h.GetAccount)
	api.GET("/account/ledger", h.GetLedger)
	api.POST("/purchases", h.PurchaseCredits)
	api.GET("/purchases", h.ListPurchases)
	api.POST("/purchases/confirm", h.ConfirmPurchase)
	api.GET("/admin/conversations", h.ListRecentConversations)
	api.POST("/admin/conversations/:id/letters", h.DigitizeLetter)
	api.POST("/admin/messages/:id/mailed", h.MarkMailed)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body %s)", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code || er.RequestID != "rid-test" {
		t.Fatalf("error body = %+v; want code %q", er, code)
	}
}
