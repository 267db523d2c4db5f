// Package handlers defines the machine-readable error codes returned by the
// API and the mapping from service errors onto them.
//
// Every error response carries an HTTP status and one of these codes:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "insufficient_credits",
//	  "message": "no free replies or credits left for this letter"
//	}
//
// Clients branch on the code, never on the message.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Ledger and workflows.
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodeGenerationFailed    = "generation_failed"
	ErrCodeContentRejected     = "content_rejected"
	ErrCodePaymentNotCompleted = "payment_not_completed"
	ErrCodePaymentUnavailable  = "payment_unavailable"
	ErrCodeInvalidCreditKind   = "invalid_credit_kind"
	ErrCodeInvalidSignature    = "invalid_signature"
	ErrCodeRequestInProgress   = "request_in_progress"
)

// apiError is the HTTP rendering of a service error.
type apiError struct {
	status int
	code   string
	msg    string
}

// errorTable is walked in order; the first errors.Is match wins.
var errorTable = []struct {
	target error
	out    apiError
}{
	{services.ErrNotAuthenticated, apiError{http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required"}},
	{services.ErrForbidden, apiError{http.StatusForbidden, ErrCodeForbidden, "not allowed"}},
	{services.ErrCreatureNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "creature not found"}},
	{services.ErrConversationNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "conversation not found"}},
	{services.ErrMessageNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "message not found"}},
	{services.ErrPurchaseNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "purchase not found"}},
	{services.ErrInsufficientCredits, apiError{http.StatusPaymentRequired, ErrCodeInsufficientCredits, "no free replies or credits left for this letter"}},
	{services.ErrContentRejected, apiError{http.StatusUnprocessableEntity, ErrCodeContentRejected, "this letter can't be sent, please try writing it differently"}},
	{services.ErrGenerationFailed, apiError{http.StatusBadGateway, ErrCodeGenerationFailed, "the creature could not write back right now, please try again"}},
	{services.ErrPaymentNotCompleted, apiError{http.StatusPaymentRequired, ErrCodePaymentNotCompleted, "payment not completed"}},
	{services.ErrPaymentUnavailable, apiError{http.StatusBadGateway, ErrCodePaymentUnavailable, "payment processor unavailable"}},
	{services.ErrInvalidCreditKind, apiError{http.StatusBadRequest, ErrCodeInvalidCreditKind, "credit type must be digital or physical"}},
	{services.ErrInvalidDeliveryKind, apiError{http.StatusBadRequest, ErrCodeBadRequest, "delivery must be digital or physical"}},
	{services.ErrConflictingState, apiError{http.StatusConflict, ErrCodeConflict, "request conflicted with a concurrent update, please retry"}},
	{services.ErrRequestInProgress, apiError{http.StatusConflict, ErrCodeRequestInProgress, "a request with this Idempotency-Key is still being processed, retry shortly"}},
	{services.ErrInvalidTransition, apiError{http.StatusConflict, ErrCodeConflict, "status change not allowed"}},
	{services.ErrEmptyLetter, apiError{http.StatusBadRequest, ErrCodeBadRequest, "letter is required"}},
	{services.ErrTooLong, apiError{http.StatusBadRequest, ErrCodeBadRequest, "text too long"}},
	{services.ErrInvalidName, apiError{http.StatusBadRequest, ErrCodeBadRequest, "creature name is required"}},
}

// mapError translates err into its HTTP rendering. Unknown errors become 500
// with a generic message; the cause is logged, never returned.
func mapError(err error) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.out
		}
	}
	return apiError{http.StatusInternalServerError, ErrCodeInternal, "internal server error"}
}

// failErr renders a service error. Server errors log the cause.
func failErr(c *gin.Context, err error) {
	e := mapError(err)
	respond(c, e.status, e.code, e.msg, err)
}
