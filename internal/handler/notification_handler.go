package handler

import (
	"errors"
	"net/http"
	"time"

	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	repo repository.NotificationRepositoryInterface
}

func NewNotificationHandler(repo repository.NotificationRepositoryInterface) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

type NotificationResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	TaskID       string `json:"taskId"`
	BoardID      string `json:"boardId"`
	TaskTitle    string `json:"taskTitle"`
	FromUserID   string `json:"fromUserId"`
	FromUserName string `json:"fromUserName"`
	Read         bool   `json:"read"`
	CreatedAt    string `json:"createdAt"`
}

// GetAll возвращает уведомления текущего пользователя, новые первыми
func (h *NotificationHandler) GetAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c)

	notifications, total, err := h.repo.GetByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	response := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = NotificationResponse{
			ID:           n.ID.String(),
			Type:         n.Type,
			TaskID:       n.TaskID.String(),
			BoardID:      n.BoardID.String(),
			TaskTitle:    n.TaskTitle,
			FromUserID:   n.FromUserID.String(),
			FromUserName: n.FromUserName,
			Read:         n.Read,
			CreatedAt:    n.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": response,
		"total":         total,
		"page":          page,
		"limit":         limit,
		"totalPages":    totalPages(total, limit),
	})
}

// MarkRead помечает уведомление прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID format"})
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
