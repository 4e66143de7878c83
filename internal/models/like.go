package models

import (
	"time"
)

const LikeTargetMessage = "message"

// Like 点赞，同一用户对同一目标最多一条 (toggle)
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetType string    `gorm:"size:20;not null;uniqueIndex:idx_like_target_user" json:"target_type"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_like_target_user" json:"target_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_like_target_user;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
