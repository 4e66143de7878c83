package models

import (
	"time"
)

// DirectMessage 私信，只能在互关好友之间发送
type DirectMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"not null;index:idx_dm_pair" json:"sender_id"`
	ReceiverID uint      `gorm:"not null;index:idx_dm_pair;index" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"default:false;not null" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation 私信会话列表的一行
type Conversation struct {
	PartnerID       uint          `json:"partner_id"`
	PartnerUsername string        `json:"partner_username"`
	LastMessage     DirectMessage `json:"last_message"`
	UnreadCount     int           `json:"unread_count"`
}
