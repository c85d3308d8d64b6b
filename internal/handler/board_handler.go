package handler

import (
	"net/http"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BoardHandler struct {
	boardRepo    repository.BoardRepositoryInterface
	memberRepo   repository.BoardMemberRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	activityRepo repository.ActivityLogRepositoryInterface
	resolver     AccessResolver
}

func NewBoardHandler(
	boardRepo repository.BoardRepositoryInterface,
	memberRepo repository.BoardMemberRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	activityRepo repository.ActivityLogRepositoryInterface,
	resolver AccessResolver,
) *BoardHandler {
	return &BoardHandler{
		boardRepo:    boardRepo,
		memberRepo:   memberRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		resolver:     resolver,
	}
}

type CreateBoardRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
}

type BoardResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
}

type ActivityResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

func boardResponse(board *model.Board) BoardResponse {
	return BoardResponse{
		ID:        board.ID.String(),
		Name:      board.Name,
		OwnerID:   board.OwnerID.String(),
		CreatedAt: board.CreatedAt.Format(time.RFC3339),
	}
}

// Create создает новую доску; владелец становится участником автоматически
func (h *BoardHandler) Create(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Board name is required"})
		return
	}

	board := &model.Board{
		Name:    name,
		OwnerID: ownerID,
	}

	if err := h.boardRepo.Create(c.Request.Context(), board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	// Явная запись членства владельца, как и для остальных участников
	if err := h.memberRepo.Add(c.Request.Context(), board.ID, ownerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board membership"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Board created",
		"board":   boardResponse(board),
	})
}

// GetAll возвращает доски, которыми пользователь владеет или в которых состоит
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boards, err := h.boardRepo.GetVisible(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve boards"})
		return
	}

	response := make([]BoardResponse, len(boards))
	for i := range boards {
		response[i] = boardResponse(&boards[i])
	}

	c.JSON(http.StatusOK, gin.H{"boards": response})
}

func (h *BoardHandler) GetByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	board, denial, err := h.resolver.ResolveBoard(c.Request.Context(), userID, boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return
	}
	if denial != nil {
		writeDenial(c, denial)
		return
	}

	c.JSON(http.StatusOK, gin.H{"board": boardResponse(board)})
}

// GetMembers возвращает владельца и всех участников доски
func (h *BoardHandler) GetMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	board, denial, err := h.resolver.ResolveBoard(c.Request.Context(), userID, boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return
	}
	if denial != nil {
		writeDenial(c, denial)
		return
	}

	members, err := h.memberRepo.GetByBoard(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve members"})
		return
	}

	// Владелец — неявный участник: включаем его и убираем дубликаты
	ids := []uuid.UUID{board.OwnerID}
	seen := map[uuid.UUID]struct{}{board.OwnerID: {}}
	for _, member := range members {
		if _, dup := seen[member.UserID]; dup {
			continue
		}
		seen[member.UserID] = struct{}{}
		ids = append(ids, member.UserID)
	}

	users, err := h.userRepo.GetByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve members"})
		return
	}

	response := make([]UserResponse, len(users))
	for i, user := range users {
		response[i] = UserResponse{
			ID:    user.ID.String(),
			Name:  user.Name,
			Email: user.Email,
		}
	}

	c.JSON(http.StatusOK, gin.H{"members": response})
}

// AddMember добавляет пользователя к доске
func (h *BoardHandler) AddMember(c *gin.Context) {
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

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	newMemberID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), newMemberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.memberRepo.Add(c.Request.Context(), boardID, newMemberID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Member added"})
}

// GetActivity возвращает журнал активности доски с пагинацией
func (h *BoardHandler) GetActivity(c *gin.Context) {
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

	page, limit := parsePagination(c)

	logs, total, err := h.activityRepo.GetByBoard(c.Request.Context(), boardID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve activity"})
		return
	}

	activities := make([]ActivityResponse, len(logs))
	for i, entry := range logs {
		userName := "Unknown"
		if entry.User.Name != "" {
			userName = entry.User.Name
		}
		activities[i] = ActivityResponse{
			ID:        entry.ID.String(),
			UserID:    entry.UserID.String(),
			UserName:  userName,
			Action:    entry.Action,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": activities,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages(total, limit),
	})
}
