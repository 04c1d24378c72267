package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wetty/chat-backend/internal/auth"
	"github.com/wetty/chat-backend/internal/repository"
)

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(users repository.UserRepository, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	UID      int32  `json:"uid"`
	Username string `json:"username"`
}

// Signup handles POST /v1/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	existing, err := h.users.GetByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, h.logger, err, "failed to check username")
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err, "failed to hash password")
		return
	}
	user, err := h.users.Create(c.Request.Context(), username, string(hash))
	if err != nil {
		respondError(c, h.logger, err, "failed to create user")
		return
	}

	token, err := auth.GenerateToken(user.UID, user.Username, h.jwtSecret, h.jwtTTL)
	if err != nil {
		respondError(c, h.logger, err, "failed to generate token")
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{Token: token, UID: user.UID, Username: user.Username})
}

// Login handles POST /v1/auth/login. Unknown username and wrong password
// produce the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := h.users.GetByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, h.logger, err, "failed to look up user")
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.UID, user.Username, h.jwtSecret, h.jwtTTL)
	if err != nil {
		respondError(c, h.logger, err, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, UID: user.UID, Username: user.Username})
}
