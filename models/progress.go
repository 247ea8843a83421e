package models

import (
	"time"

	"gorm.io/gorm"
)

// ProgressRecord marks a material as completed by a user. Existence of
// the row is the completion flag; unmarking deletes the row. The unique
// index makes the toggle a keyed upsert/delete instead of an append.
type ProgressRecord struct {
	gorm.Model
	UserID      uint `gorm:"uniqueIndex:idx_user_material;not null"`
	MaterialID  uint `gorm:"uniqueIndex:idx_user_material;not null"`
	CourseID    uint `gorm:"index;not null"`
	CompletedAt time.Time
}
