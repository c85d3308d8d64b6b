package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/activity"
	"taskboard/internal/model"
	"taskboard/internal/notification"
	"taskboard/internal/realtime"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActivityRecorder appends the activity log entry and broadcasts the board
// event implied by a mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, rec activity.Record) error
}

// AssignmentNotifier routes the task_assigned side-channel to the assignee.
type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, a notification.Assignment) error
}

type TaskHandler struct {
	taskRepo repository.TaskRepositoryInterface
	userRepo repository.UserRepositoryInterface
	resolver AccessResolver
	ordering OrderPolicy
	recorder ActivityRecorder
	notifier AssignmentNotifier
}

func NewTaskHandler(
	taskRepo repository.TaskRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	resolver AccessResolver,
	ordering OrderPolicy,
	recorder ActivityRecorder,
	notifier AssignmentNotifier,
) *TaskHandler {
	return &TaskHandler{
		taskRepo: taskRepo,
		userRepo: userRepo,
		resolver: resolver,
		ordering: ordering,
		recorder: recorder,
		notifier: notifier,
	}
}

// TaskRequest представляет запрос на создание задачи
type TaskRequest struct {
	ListID      string  `json:"listId" binding:"required,uuid"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	AssignedTo  *string `json:"assignedTo"`
	Order       *int    `json:"order"`
}

// TaskUpdateRequest представляет частичное обновление задачи
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assignedTo"`
	Order       *int    `json:"order"`
}

// TaskMoveRequest представляет запрос на перемещение задачи
type TaskMoveRequest struct {
	ListID string `json:"listId" binding:"required,uuid"`
	Order  *int   `json:"order"`
}

// TaskResponse представляет ответ с данными задачи
type TaskResponse struct {
	ID          string  `json:"id"`
	ListID      string  `json:"listId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  *string `json:"assignedTo"`
	Order       int     `json:"order"`
	CreatedAt   string  `json:"createdAt"`
}

func taskResponse(task *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		ListID:      task.ListID.String(),
		Title:       task.Title,
		Description: task.Description,
		Order:       task.Order,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.AssignedTo != nil {
		assignedTo := task.AssignedTo.String()
		resp.AssignedTo = &assignedTo
	}
	return resp
}

func taskPayload(task *model.Task) *realtime.TaskPayload {
	payload := &realtime.TaskPayload{
		ID:          task.ID.String(),
		ListID:      task.ListID.String(),
		Title:       task.Title,
		Description: task.Description,
		Order:       task.Order,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.AssignedTo != nil {
		assignedTo := task.AssignedTo.String()
		payload.AssignedTo = &assignedTo
	}
	return payload
}

// actorName возвращает имя пользователя для журнала активности.
// Сбой поиска не прерывает запрос: запись важнее имени.
func (h *TaskHandler) actorName(ctx context.Context, userID uuid.UUID) string {
	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Name
}

// record fires the activity side-channel after the response has been written.
// Failures are logged and never affect the caller's result.
func (h *TaskHandler) record(ctx context.Context, rec activity.Record) {
	if err := h.recorder.Record(ctx, rec); err != nil {
		log.Printf("⚠️  Failed to record activity %q: %v", rec.Action, err)
	}
}

func (h *TaskHandler) notifyAssignment(ctx context.Context, a notification.Assignment) {
	if err := h.notifier.NotifyAssignment(ctx, a); err != nil {
		log.Printf("⚠️  Failed to send assignment notification: %v", err)
	}
}

// getTaskAndResolveAccess загружает задачу и проверяет доступ через ее список
func (h *TaskHandler) getTaskAndResolveAccess(c *gin.Context, userID uuid.UUID) (*model.Task, *model.List, *model.Board) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return nil, nil, nil
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return nil, nil, nil
	}

	list, board, denial, err := h.resolver.ResolveList(c.Request.Context(), userID, task.ListID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return nil, nil, nil
	}
	if denial != nil {
		writeDenial(c, denial)
		return nil, nil, nil
	}

	return task, list, board
}

// Create создает новую задачу в списке
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	listID, err := uuid.Parse(req.ListID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid list ID format"})
		return
	}

	list, board, denial, err := h.resolver.ResolveList(c.Request.Context(), userID, listID)
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task title is required"})
		return
	}

	var assignedTo *uuid.UUID
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		assigneeID, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		assignedTo = &assigneeID
	}

	// Явно указанный порядок принимается как есть; иначе задача идет в конец
	var order int
	if req.Order != nil {
		order = *req.Order
	} else {
		order, err = h.ordering.NextOrder(c.Request.Context(), list.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute task order"})
			return
		}
	}

	task := &model.Task{
		ListID:      list.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		AssignedTo:  assignedTo,
		Order:       order,
	}

	if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created",
		"task":    taskResponse(task),
	})

	// Побочный канал: журнал и рассылка после ответа клиенту
	ctx := context.WithoutCancel(c.Request.Context())
	userName := h.actorName(ctx, userID)
	h.record(ctx, activity.Record{
		BoardID:  board.ID,
		UserID:   userID,
		UserName: userName,
		Action:   activity.ActionTaskCreated,
		Task:     taskPayload(task),
		ListID:   task.ListID.String(),
	})

	if task.AssignedTo != nil {
		h.notifyAssignment(ctx, notification.Assignment{
			AssigneeID:   *task.AssignedTo,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			BoardID:      board.ID,
			BoardName:    board.Name,
			FromUserID:   userID,
			FromUserName: userName,
		})
	}
}

// GetByBoard возвращает задачи доски с фильтром по списку, поиском и пагинацией
func (h *TaskHandler) GetByBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardIDStr := c.Query("boardId")
	if boardIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query boardId is required"})
		return
	}

	boardID, err := uuid.Parse(boardIDStr)
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

	filter := repository.TaskFilter{
		BoardID: boardID,
		Search:  strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.Limit = parsePagination(c)

	if listIDStr := c.Query("listId"); listIDStr != "" {
		listID, err := uuid.Parse(listIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid list ID format"})
			return
		}
		filter.ListID = &listID
	}

	tasks, total, err := h.taskRepo.GetByBoard(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = taskResponse(&tasks[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      response,
		"total":      total,
		"page":       filter.Page,
		"limit":      filter.Limit,
		"totalPages": totalPages(total, filter.Limit),
	})
}

// GetAssigned возвращает задачи, назначенные текущему пользователю
func (h *TaskHandler) GetAssigned(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c)

	tasks, total, err := h.taskRepo.GetAssigned(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = taskResponse(&tasks[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      response,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages(total, limit),
	})
}

// Update обновляет поля задачи
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, _, board := h.getTaskAndResolveAccess(c, userID)
	if task == nil {
		return
	}

	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var previousAssignee *uuid.UUID
	if task.AssignedTo != nil {
		id := *task.AssignedTo
		previousAssignee = &id
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Task title is required"})
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			task.AssignedTo = nil
		} else {
			assigneeID, err := uuid.Parse(*req.AssignedTo)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
				return
			}
			task.AssignedTo = &assigneeID
		}
	}
	if req.Order != nil {
		task.Order = *req.Order
	}

	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated",
		"task":    taskResponse(task),
	})

	ctx := context.WithoutCancel(c.Request.Context())
	userName := h.actorName(ctx, userID)
	h.record(ctx, activity.Record{
		BoardID:  board.ID,
		UserID:   userID,
		UserName: userName,
		Action:   activity.ActionTaskUpdated,
		Task:     taskPayload(task),
		ListID:   task.ListID.String(),
	})

	// Уведомляем только при смене исполнителя
	assigneeChanged := task.AssignedTo != nil &&
		(previousAssignee == nil || *previousAssignee != *task.AssignedTo)
	if assigneeChanged {
		h.notifyAssignment(ctx, notification.Assignment{
			AssigneeID:   *task.AssignedTo,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			BoardID:      board.ID,
			BoardName:    board.Name,
			FromUserID:   userID,
			FromUserName: userName,
		})
	}
}

// Delete удаляет задачу
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, _, board := h.getTaskAndResolveAccess(c, userID)
	if task == nil {
		return
	}

	if err := h.taskRepo.Delete(c.Request.Context(), task.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})

	ctx := context.WithoutCancel(c.Request.Context())
	h.record(ctx, activity.Record{
		BoardID:  board.ID,
		UserID:   userID,
		UserName: h.actorName(ctx, userID),
		Action:   activity.ActionTaskDeleted,
		Task:     &realtime.TaskPayload{ID: task.ID.String()},
		ListID:   task.ListID.String(),
	})
}

// Move перемещает задачу между списками одной доски
func (h *TaskHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, _, board := h.getTaskAndResolveAccess(c, userID)
	if task == nil {
		return
	}

	var req TaskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listId is required to move task"})
		return
	}

	targetListID, err := uuid.Parse(req.ListID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid list ID format"})
		return
	}

	targetList, targetBoard, denial, err := h.resolver.ResolveList(c.Request.Context(), userID, targetListID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return
	}
	if denial != nil {
		writeDenial(c, denial)
		return
	}

	// Перемещение между досками запрещено; проверяем до записи
	if targetBoard.ID != board.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot move task to a list on another board"})
		return
	}

	order := task.Order
	if req.Order != nil {
		order = *req.Order
	}

	fromListID := task.ListID
	moved, err := h.taskRepo.Move(c.Request.Context(), task.ID, targetList.ID, order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task moved",
		"task":    taskResponse(moved),
	})

	ctx := context.WithoutCancel(c.Request.Context())
	h.record(ctx, activity.Record{
		BoardID:    board.ID,
		UserID:     userID,
		UserName:   h.actorName(ctx, userID),
		Action:     activity.ActionTaskMoved,
		Task:       taskPayload(moved),
		ListID:     moved.ListID.String(),
		FromListID: fromListID.String(),
	})
}
