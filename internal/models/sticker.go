package models

import (
	"time"
)

type Sticker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"` // 上传者，系统表情为空
	URL       string    `gorm:"not null;index" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSticker 用户收藏的表情 (多对多)
type UserSticker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_sticker" json:"user_id"`
	StickerID uint      `gorm:"not null;uniqueIndex:idx_user_sticker" json:"sticker_id"`
	CreatedAt time.Time `json:"created_at"`
}
