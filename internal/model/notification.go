package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Type         string    `gorm:"not null"`
	TaskID       uuid.UUID `gorm:"type:uuid;not null"`
	BoardID      uuid.UUID `gorm:"type:uuid;not null"`
	TaskTitle    string    `gorm:"not null"`
	FromUserID   uuid.UUID `gorm:"type:uuid;not null"`
	FromUserName string    `gorm:"not null"`
	Read         bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// Типы уведомлений
const (
	NotificationTaskAssigned = "task_assigned"
)
