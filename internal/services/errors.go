// Package services defines the business logic of the pen-pal service:
// entitlement evaluation, the letter generation and purchase workflows,
// and the creature, conversation, account and postal operations around them.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Causes are wrapped with fmt.Errorf("%w: ...") so callers
// match with errors.Is.
package services

import "errors"

// Identity and lookup errors.
var (
	// ErrNotAuthenticated is returned when no verified identity accompanies a request.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when an identity may not act on a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrCreatureNotFound indicates that the creature does not exist or is
	// not owned by the caller.
	ErrCreatureNotFound = errors.New("creature not found")

	// ErrConversationNotFound indicates that the conversation does not exist
	// or is not owned by the caller.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrPurchaseNotFound indicates that no purchase intent matches the session.
	ErrPurchaseNotFound = errors.New("purchase not found")
)

// Ledger and workflow errors.
var (
	// ErrInsufficientCredits is returned when neither the free allowance nor
	// the relevant balance covers a reply.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrGenerationFailed wraps failures of the text generator.
	ErrGenerationFailed = errors.New("letter generation failed")

	// ErrPaymentNotCompleted is returned when the processor does not report
	// the checkout session as paid.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrPaymentUnavailable wraps failures talking to the payment processor.
	ErrPaymentUnavailable = errors.New("payment processor unavailable")

	// ErrInvalidCreditKind is returned for a credit kind outside the catalog.
	ErrInvalidCreditKind = errors.New("invalid credit kind")

	// ErrInvalidDeliveryKind is returned for a delivery kind other than
	// digital or physical.
	ErrInvalidDeliveryKind = errors.New("invalid delivery kind")

	// ErrConflictingState is returned when a guarded ledger or status update
	// lost a race with a concurrent writer.
	ErrConflictingState = errors.New("conflicting concurrent update")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRequestInProgress is returned when a request carrying the same
	// idempotency key holds the claim and has not finished yet.
	ErrRequestInProgress = errors.New("request with this idempotency key in progress")
)

// Input errors.
var (
	// ErrEmptyLetter is returned when a letter body is required but blank.
	ErrEmptyLetter = errors.New("letter is empty")

	// ErrTooLong is returned when a text field exceeds its configured limit.
	ErrTooLong = errors.New("text too long")

	// ErrInvalidName is returned when a creature name is blank.
	ErrInvalidName = errors.New("creature name is required")

	// ErrContentRejected is returned when moderation flags a child's letter.
	ErrContentRejected = errors.New("letter content rejected")
)
