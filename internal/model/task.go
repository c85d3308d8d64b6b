package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ListID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string
	AssignedTo  *uuid.UUID `gorm:"type:uuid"`
	Order       int        `gorm:"column:order;not null"`
	CreatedAt   time.Time

	List     List `gorm:"foreignKey:ListID"`
	Assignee User `gorm:"foreignKey:AssignedTo"`
}
