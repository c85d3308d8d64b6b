package repository

import (
	"context"
	"errors"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

// TaskFilter narrows the paginated board task query.
type TaskFilter struct {
	BoardID uuid.UUID
	ListID  *uuid.UUID
	Search  string
	Page    int
	Limit   int
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, id, listID uuid.UUID, order int) (*model.Task, error)
	GetByBoard(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error)
	GetAssigned(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Task, int64, error)
	MaxOrder(ctx context.Context, listID uuid.UUID) (int, bool, error)
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error
}

// Move changes the task's list and order key in a single update
func (r *TaskRepository) Move(ctx context.Context, id, listID uuid.UUID, order int) (*model.Task, error) {
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"list_id": listID, "order": order}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByBoard retrieves tasks across all lists of a board, optionally filtered
// by list and a title/description search, with pagination.
func (r *TaskRepository) GetByBoard(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).
		Joins("JOIN lists ON lists.id = tasks.list_id").
		Where("lists.board_id = ?", filter.BoardID)

	if filter.ListID != nil {
		query = query.Where("tasks.list_id = ?", *filter.ListID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("tasks.title ILIKE ? OR tasks.description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := query.
		Order(`tasks."order", tasks.created_at`).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&tasks).Error
	return tasks, total, err
}

// GetAssigned retrieves tasks assigned to the user across all boards
func (r *TaskRepository) GetAssigned(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("assigned_to = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	return tasks, total, err
}

// MaxOrder returns the highest order key among the list's tasks.
// The second return value is false when the list is empty.
func (r *TaskRepository) MaxOrder(ctx context.Context, listID uuid.UUID) (int, bool, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order(`"order" DESC`).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return task.Order, true, nil
}
