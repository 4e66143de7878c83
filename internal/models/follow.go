package models

import (
	"time"
)

// Follow 关注关系，双向存在即为好友
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Friend 互关好友的展示字段
type Friend struct {
	ID           uint       `json:"id"`
	Username     string     `json:"username"`
	LastActiveAt *time.Time `json:"last_active_at"`
	Online       bool       `gorm:"-" json:"online"`
}
