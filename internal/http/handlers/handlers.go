// Package handlers exposes the pen-pal API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// and errors into JSON. The caller's identity is read from the context keys
// set by middleware.Authenticate.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
	"github.com/tbourn/fantasy-letters-backend/internal/integrations/payments"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
	"github.com/tbourn/fantasy-letters-backend/internal/utils"
)

//
// Service contracts
//

// CreatureService manages a user's creatures.
type CreatureService interface {
	Create(ctx context.Context, userID, name, backstory, imageRef string) (*domain.Creature, error)
	List(ctx context.Context, userID string) ([]domain.Creature, error)
	Get(ctx context.Context, userID, id string) (*domain.Creature, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// ConversationService opens conversations and pages transcripts.
type ConversationService interface {
	StartOrFetch(ctx context.Context, userID, creatureID string) (*domain.Conversation, bool, error)
	ListMessagesPage(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	MessagesStats(ctx context.Context, userID, conversationID string) (int64, *time.Time, error)
}

// LetterService runs the letter generation workflow.
type LetterService interface {
	Generate(ctx context.Context, userID string, req services.LetterRequest) (*services.LetterResult, error)
}

// AccountService reads balances and the credit ledger.
type AccountService interface {
	Get(ctx context.Context, userID string) (*services.AccountView, error)
	Ledger(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// PurchaseService runs the purchase workflow.
type PurchaseService interface {
	Start(ctx context.Context, userID, email string, kind domain.CreditKind) (*services.CheckoutResult, error)
	Confirm(ctx context.Context, sessionID string) (*services.PurchaseOutcome, error)
	ConfirmForUser(ctx context.Context, userID, sessionID string) (*services.PurchaseOutcome, error)
	History(ctx context.Context, userID string, limit int) ([]domain.PurchaseIntent, error)
}

// PostalService is the administrator's side of paper mail.
type PostalService interface {
	Digitize(ctx context.Context, req services.DigitizeRequest) (*domain.Message, error)
	MarkMailed(ctx context.Context, messageID string) (*domain.Message, error)
	RecentConversations(ctx context.Context, limit int) ([]domain.Conversation, error)
}

// WebhookVerifier authenticates and decodes payment processor events.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

// IdempotencyStore claims and replays letter requests keyed by
// (user, scope, key). A claim is completed by the letter commit itself.
type IdempotencyStore interface {
	Replay(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Message, error)
	Claim(ctx context.Context, userID, scope, key string, ttl time.Duration) error
	Release(ctx context.Context, userID, scope, key string) error
}

//
// Handler wiring
//

// Deps lists the collaborators of Handlers. Webhooks and Idempotency are
// optional.
type Deps struct {
	Creatures     CreatureService
	Conversations ConversationService
	Letters       LetterService
	Accounts      AccountService
	Purchases     PurchaseService
	Postal        PostalService
	Webhooks      WebhookVerifier

	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration

	// MaxWebhookBytes caps webhook payloads; <= 0 means 64 KiB.
	MaxWebhookBytes int64
	// Now is the clock used for idempotency lookups; nil means time.Now.
	Now func() time.Time
}

// Handlers groups the API endpoints.
type Handlers struct {
	creatures     CreatureService
	conversations ConversationService
	letters       LetterService
	accounts      AccountService
	purchases     PurchaseService
	postal        PostalService
	webhooks      WebhookVerifier

	idem    IdempotencyStore
	idemTTL time.Duration

	maxWebhookBytes int64
	now             func() time.Time
}

// New constructs Handlers from d, filling defaults.
func New(d Deps) *Handlers {
	h := &Handlers{
		creatures:       d.Creatures,
		conversations:   d.Conversations,
		letters:         d.Letters,
		accounts:        d.Accounts,
		purchases:       d.Purchases,
		postal:          d.Postal,
		webhooks:        d.Webhooks,
		idem:            d.Idempotency,
		idemTTL:         d.IdempotencyTTL,
		maxWebhookBytes: d.MaxWebhookBytes,
		now:             d.Now,
	}
	if h.idemTTL <= 0 {
		h.idemTTL = 24 * time.Hour
	}
	if h.maxWebhookBytes <= 0 {
		h.maxWebhookBytes = 64 << 10
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// userID returns the authenticated caller; Authenticate guarantees it on
// every route that reads it.
func userID(c *gin.Context) string { return middleware.UserID(c) }

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationOf(p utils.Page, total int64) Pagination {
	pages := utils.TotalPages(total, p.Size)
	return Pagination{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Number < pages,
	}
}

// limitParam reads ?limit=, defaulting to def and clamping to [1, max].
func limitParam(c *gin.Context, def, max int) int {
	return utils.Clamp(utils.AtoiDefault(c.Query("limit"), def), 1, max)
}
