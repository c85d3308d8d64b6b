package repository

import (
	"context"
	"errors"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardMemberRepository struct {
	db *gorm.DB
}

type BoardMemberRepositoryInterface interface {
	Add(ctx context.Context, boardID, userID uuid.UUID) error
	Remove(ctx context.Context, boardID, userID uuid.UUID) error
	Exists(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
	GetByBoard(ctx context.Context, boardID uuid.UUID) ([]model.BoardMember, error)
}

var _ BoardMemberRepositoryInterface = (*BoardMemberRepository)(nil)

func NewBoardMemberRepository(db *gorm.DB) *BoardMemberRepository {
	return &BoardMemberRepository{db: db}
}

// Add добавляет пользователя к доске. Повторное добавление не создает дубликат.
func (r *BoardMemberRepository) Add(ctx context.Context, boardID, userID uuid.UUID) error {
	member := model.BoardMember{
		BoardID: boardID,
		UserID:  userID,
	}

	// Используем транзакцию для предотвращения гонок
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.BoardMember
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(&existing).Error

		// Запись уже существует — членство бинарное, обновлять нечего
		if err == nil {
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&member).Error
	})
}

func (r *BoardMemberRepository) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).Delete(&model.BoardMember{}).Error
}

func (r *BoardMemberRepository) Exists(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var member model.BoardMember
	err := r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *BoardMemberRepository) GetByBoard(ctx context.Context, boardID uuid.UUID) ([]model.BoardMember, error) {
	var members []model.BoardMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("board_id = ?", boardID).
		Find(&members).Error
	return members, err
}
