// Conversation and letter HTTP handlers.
//
//   - GET  /conversations/{id}/messages (paginated transcript, ETag support)
//   - POST /conversations/{id}/letters  (send a letter and get the creature's reply)
//
// Idempotency: a client that supplies an Idempotency-Key and retries gets
// the creature letter recorded for (user, conversation, key) back with
// `Idempotency-Replayed: true`, and is not charged again. The key is claimed
// before any credit is spent, so a retry overlapping the first request gets
// 409 instead of a second reply.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/http/middleware"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
	"github.com/tbourn/fantasy-letters-backend/internal/utils"
)

// HeaderIdempotencyReplayed marks a response served from a recorded result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// GenerateLetterRequest is the JSON payload for asking a creature to write.
type GenerateLetterRequest struct {
	// CreatureID, when set, must be the conversation's creature.
	CreatureID string `json:"creature_id" example:"4c1f3b0e-1d2e-4f5a-9b8c-7d6e5f4a3b2c"`
	// UserLetter is the child's letter; it may be empty when asking the
	// creature to write first.
	UserLetter string `json:"user_letter" example:"Dear Sparkle, today I lost my first tooth!"`
	// ContextNotes are extra instructions for the reply.
	ContextNotes string `json:"context_notes" example:"Mention the tooth fairy."`
	// Delivery is "digital" or "physical".
	Delivery domain.DeliveryKind `json:"delivery" binding:"required" enums:"digital,physical" example:"digital"`
}

// LetterResponse is returned by GenerateLetter.
type LetterResponse struct {
	// Message is the creature's letter.
	Message *domain.Message `json:"message"`
	// UserMessage is the child's stored letter, if one was sent.
	UserMessage   *domain.Message `json:"user_message,omitempty"`
	CostCredits   int             `json:"cost_credits"`
	UsedFreeReply bool            `json:"used_free_reply"`
	Replayed      bool            `json:"replayed,omitempty"`
}

// ListMessagesResponse contains a page of letters and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List letters in a conversation
// @Description Returns the conversation transcript, oldest first, paginated. Supports If-None-Match.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id         path   string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(50)
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	uid := userID(c)

	if count, latest, err := h.conversations.MessagesStats(ctx, uid, id); err == nil {
		if notModified(c, "messages", id, count, latest) {
			return
		}
	}

	p := utils.PageFrom(c.Query("page"), c.Query("page_size"), 50, 100)
	items, total, err := h.conversations.ListMessagesPage(ctx, uid, id, p.Number, p.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: paginationOf(p, total)})
}

// GenerateLetter godoc
// @ID          generateLetter
// @Summary     Send a letter and get the creature's reply
// @Description Stores the child's letter and generates the creature's reply. The reply is free
// @Description while the daily allowance lasts (digital only), then costs one credit of the
// @Description delivery's kind. Physical replies start as pending_physical.
// @Description Supports idempotency via the Idempotency-Key header (same key, same reply, one charge).
// @Description A retry that arrives while the first request is still running gets 409 request_in_progress.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       body             body    handlers.GenerateLetterRequest  true  "Letter"
// @Success     201  {object}  handlers.LetterResponse  "Creature reply"
// @Success     200  {object}  handlers.LetterResponse  "Replayed reply"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse   "Insufficient credits"
// @Failure     404  {object}  handlers.ErrorResponse   "Conversation not found"
// @Failure     409  {object}  handlers.ErrorResponse   "Concurrent update or request in progress"
// @Failure     422  {object}  handlers.ErrorResponse   "Letter rejected by moderation"
// @Failure     429  {object}  handlers.ErrorResponse   "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse   "Generation failed"
// @Router      /conversations/{id}/letters [post]
func (h *Handlers) GenerateLetter(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req GenerateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "delivery required")
		return
	}
	if !req.Delivery.Valid() {
		failErr(c, services.ErrInvalidDeliveryKind)
		return
	}

	uid := userID(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	scope := middleware.IdempotencyScope(c)

	var claim *services.IdempotencyClaim
	if hasKey && h.idem != nil {
		if h.replayLetter(c, uid, scope, key, id) {
			return
		}
		err := h.idem.Claim(ctx, uid, scope, key, h.idemTTL)
		switch {
		case errors.Is(err, errKeyClaimed):
			// The holder may have finished in the meantime.
			if !h.replayLetter(c, uid, scope, key, id) {
				failErr(c, services.ErrRequestInProgress)
			}
			return
		case err != nil:
			failErr(c, err)
			return
		}
		claim = &services.IdempotencyClaim{Scope: scope, Key: key, Status: http.StatusCreated}
	}

	res, err := h.letters.Generate(ctx, uid, services.LetterRequest{
		ConversationID: id,
		CreatureID:     req.CreatureID,
		UserLetter:     req.UserLetter,
		ContextNotes:   req.ContextNotes,
		Delivery:       req.Delivery,
		Idempotency:    claim,
	})
	if err != nil {
		if claim != nil {
			if rerr := h.idem.Release(context.WithoutCancel(ctx), uid, scope, key); rerr != nil {
				middleware.LoggerFrom(c).Warn().Err(rerr).Msg("idempotency release failed")
			}
		}
		failErr(c, err)
		return
	}

	ok(c, http.StatusCreated, LetterResponse{
		Message:       res.Message,
		UserMessage:   res.UserMessage,
		CostCredits:   res.CostCredits,
		UsedFreeReply: res.UsedFreeReply,
	})
}

// replayLetter serves the recorded reply for key, if one exists, and reports
// whether it did.
func (h *Handlers) replayLetter(c *gin.Context, uid, scope, key, conversationID string) bool {
	prev, err := h.idem.Replay(c.Request.Context(), uid, scope, key, h.now().UTC())
	switch {
	case err == nil && prev != nil && prev.ConversationID == conversationID:
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, LetterResponse{Message: prev, CostCredits: prev.CostCredits, Replayed: true})
		return true
	case err != nil && !errors.Is(err, errNoReplay):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency replay failed")
	}
	return false
}
