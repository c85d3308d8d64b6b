package model

import (
	"time"

	"github.com/google/uuid"
)

type List struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"not null"`
	Order     int       `gorm:"column:order;not null"`
	CreatedAt time.Time

	Board Board `gorm:"foreignKey:BoardID"`
}
