package repository

import (
	"context"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

type ActivityLogRepositoryInterface interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	GetByBoard(ctx context.Context, boardID uuid.UUID, page, limit int) ([]model.ActivityLog, int64, error)
}

var _ ActivityLogRepositoryInterface = (*ActivityLogRepository)(nil)

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByBoard retrieves the board's activity newest first with pagination
func (r *ActivityLogRepository) GetByBoard(ctx context.Context, boardID uuid.UUID, page, limit int) ([]model.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("board_id = ?", boardID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.ActivityLog
	err := query.
		Preload("User").
		Order("timestamp DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
