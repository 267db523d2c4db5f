package services

import "github.com/tbourn/fantasy-letters-backend/internal/domain"

// DefaultFreeDailyReplies is the number of free digital replies per calendar day.
const DefaultFreeDailyReplies = 2

// Decision is the outcome of evaluating whether an account may receive a reply.
type Decision struct {
	Allowed  bool
	Cost     int
	UsesFree bool
	Reason   string
}

// Evaluate decides whether acct may receive a reply of the given delivery
// kind on date today (YYYY-MM-DD). It reads nothing but its arguments.
//
// Digital replies are free while fewer than freeLimit free replies have been
// used today, then cost one digital credit. Physical replies always cost one
// physical credit.
func Evaluate(acct domain.Account, delivery domain.DeliveryKind, today string, freeLimit int) Decision {
	switch delivery {
	case domain.DeliveryDigital:
		if acct.FreeRepliesUsedOn(today) < freeLimit {
			return Decision{Allowed: true, Cost: 0, UsesFree: true}
		}
		if acct.DigitalCredits > 0 {
			return Decision{Allowed: true, Cost: 1}
		}
		return Decision{Reason: "no free replies left today and no digital credits"}
	case domain.DeliveryPhysical:
		if acct.PhysicalCredits > 0 {
			return Decision{Allowed: true, Cost: 1}
		}
		return Decision{Reason: "no physical credits"}
	default:
		return Decision{Reason: "unknown delivery kind"}
	}
}

// FreeRepliesRemaining returns how many free digital replies acct has left on today.
func FreeRepliesRemaining(acct domain.Account, today string, freeLimit int) int {
	left := freeLimit - acct.FreeRepliesUsedOn(today)
	if left < 0 {
		return 0
	}
	return left
}
