package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// AccountResponse is the caller's balances with the daily rollover applied.
type AccountResponse struct {
	DigitalCredits       int    `json:"digital_credits" example:"12"`
	PhysicalCredits      int    `json:"physical_credits" example:"3"`
	DailyFreeRepliesUsed int    `json:"daily_free_replies_used" example:"1"`
	FreeRepliesRemaining int    `json:"free_replies_remaining" example:"1"`
	DailyResetDate       string `json:"daily_reset_date" example:"2026-04-10"`
}

// LedgerResponse wraps the caller's credit movements.
type LedgerResponse struct {
	Entries []domain.LedgerEntry `json:"entries"`
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Get balances
// @Description Returns credit balances and today's free-reply usage. Accounts are created on first use.
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.AccountResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /account [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	v, err := h.accounts.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AccountResponse{
		DigitalCredits:       v.DigitalCredits,
		PhysicalCredits:      v.PhysicalCredits,
		DailyFreeRepliesUsed: v.DailyFreeRepliesUsed,
		FreeRepliesRemaining: v.FreeRepliesRemaining,
		DailyResetDate:       v.Today,
	})
}

// GetLedger godoc
// @ID          getLedger
// @Summary     Credit movements
// @Description Free replies used, credits spent and packs granted, newest first.
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query     int  false  "Max items"  minimum(1) maximum(100) default(50)
// @Success     200    {object}  handlers.LedgerResponse
// @Failure     401    {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /account/ledger [get]
func (h *Handlers) GetLedger(c *gin.Context) {
	entries, err := h.accounts.Ledger(c.Request.Context(), userID(c), limitParam(c, 50, 100))
	if err != nil {
		failErr(c, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	ok(c, http.StatusOK, LedgerResponse{Entries: entries})
}
