package models

import (
	"time"
)

// Message 帖子。UserID 为空表示匿名
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Title     *string   `json:"title"`
	ChannelID uint      `gorm:"not null;index;default:1" json:"channel_id"`
	Nickname  string    `gorm:"size:50" json:"nickname"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	ViewCount int       `gorm:"default:0;not null" json:"view_count"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// MessageView 带统计信息的帖子读取结果
type MessageView struct {
	ID          uint      `json:"id"`
	Content     string    `json:"content,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	ContentHTML string    `gorm:"-" json:"content_html,omitempty"`
	Title       *string   `json:"title"`
	ChannelID   uint      `json:"channel_id"`
	ChannelSlug *string   `json:"channel_slug,omitempty"`
	ChannelName *string   `json:"channel_name,omitempty"`
	Nickname    string    `json:"nickname"`
	UserID      *uint     `json:"user_id"`
	Username    *string   `json:"username"`
	ViewCount   int       `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`

	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
	LikedByUser  bool  `json:"liked_by_user"`
}
