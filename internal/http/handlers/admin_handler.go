// Administrator HTTP handlers for paper mail.
//
//   - GET  /admin/conversations               (recently active conversations)
//   - POST /admin/conversations/{id}/letters  (digitize a child's paper letter)
//   - POST /admin/messages/{id}/mailed        (mark a printed reply as posted)
//
// These routes sit behind middleware.RequireAdmin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

// DigitizeLetterRequest is a transcribed paper letter.
type DigitizeLetterRequest struct {
	Content        string `json:"content" binding:"required" example:"Dear Sparkle, I drew you a rainbow."`
	ImageReference string `json:"image_reference" example:"s3://letters/scans/2026-04-10/0001.jpg"`
	AdminNotes     string `json:"admin_notes" example:"Crayon drawing enclosed."`
}

// RecentConversationsResponse lists conversations by last activity.
type RecentConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

// ListRecentConversations godoc
// @ID          listRecentConversations
// @Summary     Recently active conversations
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
// @Param       limit  query     int  false  "Max items"  minimum(1) maximum(100) default(20)
// @Success     200    {object}  handlers.RecentConversationsResponse
// @Failure     403    {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /admin/conversations [get]
func (h *Handlers) ListRecentConversations(c *gin.Context) {
	items, err := h.postal.RecentConversations(c.Request.Context(), limitParam(c, 20, 100))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Conversation{}
	}
	ok(c, http.StatusOK, RecentConversationsResponse{Conversations: items})
}

// DigitizeLetter godoc
// @ID          digitizePhysicalLetter
// @Summary     Digitize a paper letter
// @Description Stores a child's posted letter as a received physical message. Nothing is charged.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    AdminToken
// @Param       id    path      string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       body  body      handlers.DigitizeLetterRequest  true  "Transcription"
// @Success     201   {object}  domain.Message
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404   {object}  handlers.ErrorResponse  "Conversation not found"
// @Router      /admin/conversations/{id}/letters [post]
func (h *Handlers) DigitizeLetter(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	var req DigitizeLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	m, err := h.postal.Digitize(c.Request.Context(), services.DigitizeRequest{
		ConversationID: id,
		Content:        req.Content,
		ImageReference: req.ImageReference,
		AdminNotes:     req.AdminNotes,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// MarkMailed godoc
// @ID          markMailed
// @Summary     Mark a physical reply as mailed
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
// @Param       id   path      string  true  "Message ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not pending mail"
// @Router      /admin/messages/{id}/mailed [post]
func (h *Handlers) MarkMailed(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}
	m, err := h.postal.MarkMailed(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}
