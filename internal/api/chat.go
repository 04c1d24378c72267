package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/middleware"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/repository"
	"github.com/wetty/chat-backend/internal/service"
)

type ChatHandler struct {
	chats   *service.ChatService
	members *service.MemberService
	logger  *zap.Logger
}

func NewChatHandler(chats *service.ChatService, members *service.MemberService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, members: members, logger: logger}
}

type createChatRequest struct {
	Name *string `json:"name"`
}

type createChatResponse struct {
	ID        models.ID `json:"id"`
	Name      *string   `json:"name"`
	CreatedAt string    `json:"created_at"`
}

// Create handles POST /v1/chats. The creator becomes the chat's admin.
func (h *ChatHandler) Create(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	chat, err := h.chats.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to create chat")
		return
	}

	resp := createChatResponse{
		ID:        chat.ID,
		CreatedAt: chat.CreatedAt.Format(time.RFC3339Nano),
	}
	if chat.Name != "" {
		resp.Name = &chat.Name
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/chats?limit=50&after=<chat id>
//
// Keyset pagination: "after" names the last chat of the previous page; the
// response's next_cursor is passed back verbatim to fetch the next one.
func (h *ChatHandler) List(c *gin.Context) {
	uid := middleware.GetUID(c)

	limit := pagination.MaxChatsLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return
		}
		limit = n
	}

	var after *models.ID
	if a := c.Query("after"); a != "" {
		id, err := models.ParseID(a)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'after' parameter"})
			return
		}
		after = &id
	}

	page, err := h.chats.List(c.Request.Context(), uid, limit, after)
	if err != nil {
		respondError(c, h.logger, err, "failed to list chats")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/chats/:chat_id. Membership is required even to learn
// whether the chat exists.
func (h *ChatHandler) Get(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}
	chat, err := h.chats.Get(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, h.logger, err, "failed to get chat")
		return
	}
	c.JSON(http.StatusOK, chat)
}

type updateChatRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
	Visibility  *string `json:"visibility"`
}

// Update handles PATCH /v1/chats/:chat_id (admin only). Absent fields are
// left unchanged.
func (h *ChatHandler) Update(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireAdmin(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check admin role")
		return
	}

	chat, err := h.chats.UpdateMetadata(c.Request.Context(), chatID, repository.ChatUpdate{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
		Visibility:  req.Visibility,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to update chat")
		return
	}
	c.JSON(http.StatusOK, chat)
}
