// Package api contains the gin handlers and the mapping from service
// errors to transport outcomes.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/errs"
	"github.com/wetty/chat-backend/internal/models"
)

// respondError translates a service error into an HTTP status. Sentinel
// kinds map to 4xx; anything else is a 500 and gets logged with the
// failing operation's detail, while the client sees only fallback.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errs.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, errs.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot edit deleted message"})
	case errors.Is(err, errs.ErrAlreadyDeleted):
		c.JSON(http.StatusGone, gin.H{"error": "message already deleted"})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// pathID parses a 64-bit id path parameter, answering 400 itself on
// failure.
func pathID(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
