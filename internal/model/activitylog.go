package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is append-only: rows are created on board mutations and never
// updated afterwards.
type ActivityLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Action    string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`

	Board Board `gorm:"foreignKey:BoardID"`
	User  User  `gorm:"foreignKey:UserID"`
}
