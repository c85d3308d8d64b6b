package handler

import (
	"context"
	"net/http"

	"taskboard/internal/access"
	"taskboard/internal/model"
	"taskboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccessResolver decides whether the authenticated user may touch a board or
// list. Denials come back as values and are mapped to responses here.
type AccessResolver interface {
	ResolveBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, *access.Denial, error)
	ResolveList(ctx context.Context, userID, listID uuid.UUID) (*model.List, *model.Board, *access.Denial, error)
}

// currentUserID extracts the authenticated user ID set by the auth middleware.
// The boolean is false when the response has already been written.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}

	return authenticatedUserID, true
}

// writeDenial maps an access denial to its response
func writeDenial(c *gin.Context, denial *access.Denial) {
	c.JSON(denial.Status, gin.H{"error": denial.Message})
}
