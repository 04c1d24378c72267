package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/middleware"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
	members  *service.MemberService
	logger   *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, members *service.MemberService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, members: members, logger: logger}
}

type createMessageRequest struct {
	Message           *string `json:"message"`
	MessageType       string  `json:"message_type"`
	ClientGeneratedID string  `json:"client_generated_id"`
	ReplyToID         *string `json:"reply_to_message_id"`
	ReplyRootID       *string `json:"reply_root_message_id"`
}

// Create handles POST /v1/chats/:chat_id/messages.
func (h *MessageHandler) Create(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = "text"
	}
	replyTo, ok := optionalID(c, req.ReplyToID, "reply_to_message_id")
	if !ok {
		return
	}
	replyRoot, ok := optionalID(c, req.ReplyRootID, "reply_root_message_id")
	if !ok {
		return
	}

	view, err := h.messages.Create(c.Request.Context(), service.CreateMessageInput{
		ChatID:            chatID,
		SenderUID:         uid,
		Body:              req.Message,
		Type:              msgType,
		ClientGeneratedID: req.ClientGeneratedID,
		ReplyToID:         replyTo,
		ReplyRootID:       replyRoot,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to create message")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List handles GET /v1/chats/:chat_id/messages?max=50&before=<message id>
//
// Pages are newest first; "before" names the oldest message of the
// previous page.
func (h *MessageHandler) List(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}

	limit := pagination.MaxMessagesLimit
	if m := c.Query("max"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'max' parameter"})
			return
		}
		limit = n
	}
	var before *models.ID
	if b := c.Query("before"); b != "" {
		id, err := models.ParseID(b)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return
		}
		before = &id
	}

	page, err := h.messages.List(c.Request.Context(), chatID, limit, before)
	if err != nil {
		respondError(c, h.logger, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, page)
}

type updateMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// Update handles PATCH /v1/chats/:chat_id/messages/:message_id. Only the
// sender may edit, and only while the message is not deleted.
func (h *MessageHandler) Update(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}

	view, err := h.messages.Edit(c.Request.Context(), chatID, messageID, uid, req.Message)
	if err != nil {
		respondError(c, h.logger, err, "failed to update message")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /v1/chats/:chat_id/messages/:message_id. The row
// is soft-deleted and a "message_deleted" event is pushed to members.
func (h *MessageHandler) Delete(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}

	if _, err := h.messages.Delete(c.Request.Context(), chatID, messageID, uid); err != nil {
		respondError(c, h.logger, err, "failed to delete message")
		return
	}
	c.Status(http.StatusNoContent)
}

// optionalID parses a string-typed id field that may be absent.
func optionalID(c *gin.Context, raw *string, name string) (*models.ID, bool) {
	if raw == nil {
		return nil, true
	}
	id, err := models.ParseID(*raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}
