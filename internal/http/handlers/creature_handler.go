// Creature HTTP handlers.
//
//   - POST /creatures                   (create)
//   - GET  /creatures                   (list, ETag support)
//   - GET  /creatures/{id}              (fetch one)
//   - POST /creatures/{id}/conversation (start or fetch the conversation)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// CreateCreatureRequest is the JSON payload for creating a creature.
type CreateCreatureRequest struct {
	// Name is trimmed and title-cased by the service.
	Name string `json:"name" binding:"required,min=1" example:"princess sparkle hoof"`
	// Backstory seeds the creature's persona.
	Backstory string `json:"backstory" example:"A unicorn who guards the rainbow bridge and loves riddles."`
	// ImageReference optionally points at a picture of the creature.
	ImageReference string `json:"image_reference" example:"https://cdn.example.com/creatures/sparkle.png"`
}

// ListCreaturesResponse wraps the caller's creatures.
type ListCreaturesResponse struct {
	Creatures []domain.Creature `json:"creatures"`
}

// ConversationResponse is returned when a conversation is opened or fetched.
type ConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Created      bool                 `json:"created"`
}

// CreateCreature godoc
// @ID          createCreature
// @Summary     Create a creature
// @Description Creates a magical pen pal owned by the caller. The name is normalized.
// @Tags        Creatures
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateCreatureRequest  true  "Creature"
// @Success     201   {object}  domain.Creature
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /creatures [post]
func (h *Handlers) CreateCreature(c *gin.Context) {
	var req CreateCreatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	cr, err := h.creatures.Create(c.Request.Context(), userID(c), req.Name, req.Backstory, req.ImageReference)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+cr.ID)
	ok(c, http.StatusCreated, cr)
}

// ListCreatures godoc
// @ID          listCreatures
// @Summary     List creatures
// @Description Lists the caller's creatures, oldest first. Supports If-None-Match.
// @Tags        Creatures
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListCreaturesResponse
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /creatures [get]
func (h *Handlers) ListCreatures(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check is best effort.
	if count, latest, err := h.creatures.Stats(ctx, uid); err == nil {
		if notModified(c, "creatures", uid, count, latest) {
			return
		}
	}

	items, err := h.creatures.List(ctx, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Creature{}
	}
	ok(c, http.StatusOK, ListCreaturesResponse{Creatures: items})
}

// GetCreature godoc
// @ID          getCreature
// @Summary     Get a creature
// @Tags        Creatures
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Creature ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Creature
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Creature not found"
// @Router      /creatures/{id} [get]
func (h *Handlers) GetCreature(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creature id must be a UUID")
		return
	}
	cr, err := h.creatures.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cr)
}

// StartConversation godoc
// @ID          startConversationOrFetch
// @Summary     Start or fetch the conversation with a creature
// @Description Returns the caller's conversation with the creature, creating it on first contact (201).
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Creature ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ConversationResponse  "Existing conversation"
// @Success     201  {object}  handlers.ConversationResponse  "New conversation"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Creature not found"
// @Router      /creatures/{id}/conversation [post]
func (h *Handlers) StartConversation(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creature id must be a UUID")
		return
	}
	conv, created, err := h.conversations.StartOrFetch(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, ConversationResponse{Conversation: conv, Created: created})
}
