// Package domain defines the persistence models and closed vocabularies of
// the pen-pal service: accounts and their credit balances, creatures,
// conversations, letters, purchases and the credit ledger audit trail.
// These types are mapped with GORM and shared by the repo and service layers.
package domain

import (
	"time"
)

// Account holds a user's spendable balances and the daily free-reply counter.
// The row is keyed by the identity provider's user id.
//
// Fields:
//   - UserID: identity of the owner (primary key).
//   - DigitalCredits / PhysicalCredits: non-negative balances.
//   - DailyFreeRepliesUsed: free digital replies consumed on DailyResetDate.
//   - DailyResetDate: calendar date (YYYY-MM-DD, UTC) the counter refers to.
//     A stale date means the counter is logically zero.
type Account struct {
	UserID               string    `json:"user_id"                 gorm:"type:varchar(64);primaryKey"`
	DigitalCredits       int       `json:"digital_credits"         gorm:"not null;default:0;check:digital_credits >= 0"`
	PhysicalCredits      int       `json:"physical_credits"        gorm:"not null;default:0;check:physical_credits >= 0"`
	DailyFreeRepliesUsed int       `json:"daily_free_replies_used" gorm:"not null;default:0;check:daily_free_replies_used >= 0"`
	DailyResetDate       string    `json:"daily_reset_date"        gorm:"type:char(10);not null;default:''"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// FreeRepliesUsedOn returns the effective free-reply count for the given
// date, applying the rollover rule.
func (a Account) FreeRepliesUsedOn(today string) int {
	if a.DailyResetDate != today {
		return 0
	}
	return a.DailyFreeRepliesUsed
}

// Balance returns the balance for the given credit kind.
func (a Account) Balance(k CreditKind) int {
	if k == CreditPhysical {
		return a.PhysicalCredits
	}
	return a.DigitalCredits
}

// Creature is a magical pen pal created by a user.
type Creature struct {
	ID             string        `json:"id"                        gorm:"type:char(36);primaryKey"`
	UserID         string        `json:"user_id"                   gorm:"type:varchar(64);not null;index:idx_user_creatures"`
	Name           string        `json:"name"                      gorm:"type:varchar(80);not null"`
	Backstory      string        `json:"backstory"                 gorm:"type:text;not null;default:''"`
	ImageReference *string       `json:"image_reference,omitempty" gorm:"type:text"`
	State          CreatureState `json:"state"                     gorm:"type:varchar(32);not null;default:'idle';check:state IN ('idle','waiting_for_letter','awaiting_reply')"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Creature.
func (Creature) TableName() string { return "creatures" }

// Conversation is the single thread between one creature and one user. The
// (creature_id, user_id) pair is unique so concurrent first contacts converge
// on one row.
type Conversation struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	CreatureID     string    `json:"creature_id"      gorm:"type:char(36);not null;uniqueIndex:ux_conversation_creature_user,priority:1"`
	UserID         string    `json:"user_id"          gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_creature_user,priority:2;index"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"index:idx_conversation_activity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Creature Creature `json:"-" gorm:"foreignKey:CreatureID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is one letter in a conversation, written either by the child or
// by the creature, and delivered digitally or on paper.
//
// Fields:
//   - Sender / Delivery / Status: closed vocabularies enforced by checks.
//   - CostCredits: credits charged for this letter (0 for free replies and
//     for letters written by the child).
//   - ContextNotes: the caller's extra instructions for a generated reply.
//   - ImageReference / Summary: scan reference and admin notes for a
//     digitized paper letter.
//   - MailedAt: set when a physical creature letter is posted.
type Message struct {
	ID             string        `json:"id"                        gorm:"type:char(36);primaryKey"`
	ConversationID string        `json:"conversation_id"           gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	Sender         SenderKind    `json:"sender"                    gorm:"type:varchar(16);not null;check:sender IN ('user','creature')"`
	Delivery       DeliveryKind  `json:"delivery"                  gorm:"type:varchar(16);not null;check:delivery IN ('digital','physical')"`
	Content        string        `json:"content"                   gorm:"type:text;not null"`
	Status         MessageStatus `json:"status"                    gorm:"type:varchar(32);not null;index;check:status IN ('sent','pending_physical','mailed','received')"`
	CostCredits    int           `json:"cost_credits"              gorm:"not null;default:0;check:cost_credits >= 0"`
	ContextNotes   *string       `json:"context_notes,omitempty"   gorm:"type:text"`
	ImageReference *string       `json:"image_reference,omitempty" gorm:"type:text"`
	Summary        *string       `json:"summary,omitempty"         gorm:"type:text"`
	MailedAt       *time.Time    `json:"mailed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"                gorm:"index:idx_conversation_msgs,priority:2"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// PurchaseIntent records a checkout started with the payment processor.
// ExternalSessionID is unique; completion is a one-way pending -> completed move.
type PurchaseIntent struct {
	ID                string         `json:"id"                     gorm:"type:char(36);primaryKey"`
	UserID            string         `json:"user_id"                gorm:"type:varchar(64);not null;index:idx_user_purchases,priority:1"`
	ExternalSessionID string         `json:"external_session_id"    gorm:"type:varchar(255);not null;uniqueIndex:ux_purchase_session"`
	CreditKind        CreditKind     `json:"credit_kind"            gorm:"type:varchar(16);not null;check:credit_kind IN ('digital','physical')"`
	CreditsAmount     int            `json:"credits_amount"         gorm:"not null;check:credits_amount > 0"`
	AmountPaidCents   int64          `json:"amount_paid_cents"      gorm:"not null"`
	Currency          string         `json:"currency"               gorm:"type:varchar(3);not null;default:'usd'"`
	Status            PurchaseStatus `json:"status"                 gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','completed')"`
	CreatedAt         time.Time      `json:"created_at"             gorm:"index:idx_user_purchases,priority:2"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// TableName returns the database table name for PurchaseIntent.
func (PurchaseIntent) TableName() string { return "purchase_intents" }

// LedgerEntry is an append-only audit row written in the same transaction
// as every balance mutation. The (reference_type, reference_id, kind)
// triple is unique, so a purchase can be granted at most once.
// BalanceAfter is the credit_kind balance once the movement was applied.
type LedgerEntry struct {
	ID            string          `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string          `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_ledger,priority:1"`
	Kind          LedgerEntryKind `json:"kind"           gorm:"type:varchar(16);not null;uniqueIndex:ux_ledger_reference,priority:3;check:kind IN ('free_reply','debit','grant')"`
	CreditKind    CreditKind      `json:"credit_kind"    gorm:"type:varchar(16);not null"`
	Amount        int             `json:"amount"         gorm:"not null"`
	BalanceAfter  int             `json:"balance_after"  gorm:"not null;default:0"`
	ReferenceType string          `json:"reference_type" gorm:"type:varchar(32);not null;uniqueIndex:ux_ledger_reference,priority:1"`
	ReferenceID   string          `json:"reference_id"   gorm:"type:varchar(255);not null;uniqueIndex:ux_ledger_reference,priority:2"`
	CreatedAt     time.Time       `json:"created_at"     gorm:"index:idx_user_ledger,priority:2"`
}

// TableName returns the database table name for LedgerEntry.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// Reference types recorded on ledger entries.
const (
	RefMessage  = "message"
	RefPurchase = "purchase"
)

// DateOf returns the UTC calendar date of t in YYYY-MM-DD form. Free-reply
// allowances roll over on this boundary.
func DateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
