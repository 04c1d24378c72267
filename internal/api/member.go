package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/middleware"
	"github.com/wetty/chat-backend/internal/service"
)

type MemberHandler struct {
	members *service.MemberService
	logger  *zap.Logger
}

func NewMemberHandler(members *service.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{members: members, logger: logger}
}

// List handles GET /v1/chats/:chat_id/members (members only).
func (h *MemberHandler) List(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check membership")
		return
	}
	members, err := h.members.List(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, h.logger, err, "failed to list members")
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type addMemberRequest struct {
	UID  int32  `json:"uid" binding:"required"`
	Role string `json:"role"`
}

// Add handles POST /v1/chats/:chat_id/members (admins only).
func (h *MemberHandler) Add(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireAdmin(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check admin role")
		return
	}
	member, err := h.members.Add(c.Request.Context(), chatID, req.UID, req.Role)
	if err != nil {
		respondError(c, h.logger, err, "failed to add member")
		return
	}
	c.JSON(http.StatusCreated, member)
}

// Remove handles DELETE /v1/chats/:chat_id/members/:uid. Admins may remove
// anyone; a regular member may remove only themselves (leaving the chat).
func (h *MemberHandler) Remove(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	targetUID, ok := pathUID(c)
	if !ok {
		return
	}
	uid := middleware.GetUID(c)

	if targetUID != uid {
		if err := h.members.RequireAdmin(c.Request.Context(), chatID, uid); err != nil {
			respondError(c, h.logger, err, "failed to check admin role")
			return
		}
	} else {
		if err := h.members.RequireMember(c.Request.Context(), chatID, uid); err != nil {
			respondError(c, h.logger, err, "failed to check membership")
			return
		}
	}

	if err := h.members.Remove(c.Request.Context(), chatID, targetUID); err != nil {
		respondError(c, h.logger, err, "failed to remove member")
		return
	}
	c.Status(http.StatusNoContent)
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole handles PATCH /v1/chats/:chat_id/members/:uid (admins only).
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	targetUID, ok := pathUID(c)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.GetUID(c)

	if err := h.members.RequireAdmin(c.Request.Context(), chatID, uid); err != nil {
		respondError(c, h.logger, err, "failed to check admin role")
		return
	}
	member, err := h.members.UpdateRole(c.Request.Context(), chatID, targetUID, req.Role)
	if err != nil {
		respondError(c, h.logger, err, "failed to update member role")
		return
	}
	c.JSON(http.StatusOK, member)
}

func pathUID(c *gin.Context) (int32, bool) {
	n, err := strconv.ParseInt(c.Param("uid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uid"})
		return 0, false
	}
	return int32(n), true
}
