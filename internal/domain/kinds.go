package domain

// SenderKind identifies who authored a message in a pen-pal conversation.
type SenderKind string

const (
	SenderUser     SenderKind = "user"
	SenderCreature SenderKind = "creature"
)

// Valid reports whether s is one of the known sender kinds.
func (s SenderKind) Valid() bool {
	return s == SenderUser || s == SenderCreature
}

// DeliveryKind is the channel a letter travels on.
type DeliveryKind string

const (
	DeliveryDigital  DeliveryKind = "digital"
	DeliveryPhysical DeliveryKind = "physical"
)

// Valid reports whether d is one of the known delivery kinds.
func (d DeliveryKind) Valid() bool {
	return d == DeliveryDigital || d == DeliveryPhysical
}

// CreditKind names the balance a purchase or debit applies to. Credit kinds
// map one-to-one onto delivery kinds.
type CreditKind string

const (
	CreditDigital  CreditKind = "digital"
	CreditPhysical CreditKind = "physical"
)

// Valid reports whether k is one of the known credit kinds.
func (k CreditKind) Valid() bool {
	return k == CreditDigital || k == CreditPhysical
}

// CreditKindFor returns the balance consumed by a letter of the given delivery kind.
func CreditKindFor(d DeliveryKind) CreditKind {
	if d == DeliveryPhysical {
		return CreditPhysical
	}
	return CreditDigital
}

// MessageStatus tracks where a letter is in its lifecycle.
//
//   - sent:             digital letter, visible immediately
//   - pending_physical: creature letter waiting to be printed and mailed
//   - mailed:           creature letter handed to the post
//   - received:         a child's paper letter that has been digitized
type MessageStatus string

const (
	StatusSent            MessageStatus = "sent"
	StatusPendingPhysical MessageStatus = "pending_physical"
	StatusMailed          MessageStatus = "mailed"
	StatusReceived        MessageStatus = "received"
)

var messageTransitions = map[MessageStatus][]MessageStatus{
	StatusPendingPhysical: {StatusMailed},
}

// Valid reports whether s is one of the known message statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusPendingPhysical, StatusMailed, StatusReceived:
		return true
	}
	return false
}

// CanTransition reports whether a message may move from s to next.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	return contains(messageTransitions[s], next)
}

// InitialStatus is the status a newly written letter starts in.
func InitialStatus(sender SenderKind, delivery DeliveryKind) MessageStatus {
	switch {
	case delivery == DeliveryDigital:
		return StatusSent
	case sender == SenderCreature:
		return StatusPendingPhysical
	default:
		return StatusReceived
	}
}

// PurchaseStatus is the state of a checkout. pending -> completed is the only move.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
)

// CanTransition reports whether a purchase may move from s to next.
func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	return s == PurchasePending && next == PurchaseCompleted
}

// CreatureState describes whose turn it is in a creature's correspondence.
type CreatureState string

const (
	CreatureIdle             CreatureState = "idle"
	CreatureWaitingForLetter CreatureState = "waiting_for_letter"
	CreatureAwaitingReply    CreatureState = "awaiting_reply"
)

var creatureTransitions = map[CreatureState][]CreatureState{
	CreatureIdle:             {CreatureWaitingForLetter},
	CreatureWaitingForLetter: {CreatureAwaitingReply},
	CreatureAwaitingReply:    {CreatureWaitingForLetter},
}

// Valid reports whether s is one of the known creature states.
func (s CreatureState) Valid() bool {
	_, ok := creatureTransitions[s]
	return ok
}

// CanTransition reports whether a creature may move from s to next.
func (s CreatureState) CanTransition(next CreatureState) bool {
	return contains(creatureTransitions[s], next)
}

// Sources returns every state that may transition into s.
func (s CreatureState) Sources() []CreatureState {
	var out []CreatureState
	for from, tos := range creatureTransitions {
		if contains(tos, s) {
			out = append(out, from)
		}
	}
	return out
}

// LedgerEntryKind classifies an audit row in the credit ledger.
type LedgerEntryKind string

const (
	EntryFreeReply LedgerEntryKind = "free_reply"
	EntryDebit     LedgerEntryKind = "debit"
	EntryGrant     LedgerEntryKind = "grant"
)

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
