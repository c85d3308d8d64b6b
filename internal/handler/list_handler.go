package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderPolicy computes the append position for a new sibling.
type OrderPolicy interface {
	NextOrder(ctx context.Context, parentID uuid.UUID) (int, error)
}

type ListHandler struct {
	listRepo repository.ListRepositoryInterface
	resolver AccessResolver
	ordering OrderPolicy
}

func NewListHandler(listRepo repository.ListRepositoryInterface, resolver AccessResolver, ordering OrderPolicy) *ListHandler {
	return &ListHandler{
		listRepo: listRepo,
		resolver: resolver,
		ordering: ordering,
	}
}

type CreateListRequest struct {
	BoardID string `json:"boardId" binding:"required,uuid"`
	Title   string `json:"title" binding:"required"`
	Order   *int   `json:"order"`
}

type ListResponse struct {
	ID        string `json:"id"`
	BoardID   string `json:"boardId"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	CreatedAt string `json:"createdAt"`
}

func listResponse(list *model.List) ListResponse {
	return ListResponse{
		ID:        list.ID.String(),
		BoardID:   list.BoardID.String(),
		Title:     list.Title,
		Order:     list.Order,
		CreatedAt: list.CreatedAt.Format(time.RFC3339),
	}
}

// Create создает новый список на доске
func (h *ListHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	_, denial, err := h.resolver.ResolveBoard(c.Request.Context(), userID, boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return
	}
	if denial != nil {
		writeDenial(c, denial)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "List title is required"})
		return
	}

	// Явно указанный порядок принимается как есть
	var order int
	if req.Order != nil {
		order = *req.Order
	} else {
		order, err = h.ordering.NextOrder(c.Request.Context(), boardID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute list order"})
			return
		}
	}

	list := &model.List{
		BoardID: boardID,
		Title:   title,
		Order:   order,
	}

	if err := h.listRepo.Create(c.Request.Context(), list); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create list"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "List created",
		"list":    listResponse(list),
	})
}

// GetByBoard возвращает списки доски слева направо
func (h *ListHandler) GetByBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	_, denial, err := h.resolver.ResolveBoard(c.Request.Context(), userID, boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return
	}
	if denial != nil {
		writeDenial(c, denial)
		return
	}

	lists, err := h.listRepo.GetByBoardID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lists"})
		return
	}

	response := make([]ListResponse, len(lists))
	for i := range lists {
		response[i] = listResponse(&lists[i])
	}

	c.JSON(http.StatusOK, gin.H{"lists": response})
}
