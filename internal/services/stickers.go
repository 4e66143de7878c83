package services

import (
	"context"
	"errors"
	"strings"

	"warmwall/internal/apperr"
	"warmwall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxStickerURLLen = 500

type StickerService struct {
	db *gorm.DB
}

func NewStickerService(db *gorm.DB) *StickerService {
	return &StickerService{db: db}
}

// CollectRequest 按 id 或 url 收藏，id 优先
type CollectRequest struct {
	ID  uint   `json:"id"`
	URL string `json:"url"`
}

func validStickerURL(url string) error {
	if url == "" {
		return apperr.Validation("url", "is required")
	}
	if len(url) > maxStickerURLLen {
		return apperr.Validation("url", "is too long")
	}
	return nil
}

func collect(tx *gorm.DB, userID, stickerID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserSticker{UserID: userID, StickerID: stickerID}).Error
}

// Create 上传者自动收藏自己的表情
func (s *StickerService) Create(ctx context.Context, actorID uint, url string) (*models.Sticker, error) {
	url = strings.TrimSpace(url)
	if err := validStickerURL(url); err != nil {
		return nil, err
	}

	owner := actorID
	sticker := models.Sticker{UserID: &owner, URL: url}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sticker).Error; err != nil {
			return err
		}
		return collect(tx, actorID, sticker.ID)
	})
	if err != nil {
		return nil, apperr.Storage("create sticker", err)
	}
	return &sticker, nil
}

func (s *StickerService) Mine(ctx context.Context, actorID uint) ([]models.Sticker, error) {
	var stickers []models.Sticker
	err := s.db.WithContext(ctx).
		Table("stickers AS s").
		Select("s.*").
		Joins("JOIN user_stickers us ON s.id = us.sticker_id").
		Where("us.user_id = ?", actorID).
		Order("us.created_at DESC").Order("us.id DESC").
		Scan(&stickers).Error
	if err != nil {
		return nil, apperr.Storage("list stickers", err)
	}
	if stickers == nil {
		stickers = []models.Sticker{}
	}
	return stickers, nil
}

// Collect adds a sticker to the caller's set. An unknown url creates a system sticker first.
// Collecting twice is a no-op.
func (s *StickerService) Collect(ctx context.Context, actorID uint, req CollectRequest) error {
	url := strings.TrimSpace(req.URL)
	if req.ID == 0 && url == "" {
		return apperr.NotFound("Sticker")
	}
	if req.ID == 0 {
		if err := validStickerURL(url); err != nil {
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sticker models.Sticker
		if req.ID != 0 {
			if err := tx.Select("id").First(&sticker, req.ID).Error; err != nil {
				return err
			}
		} else {
			err := tx.Select("id").Where("url = ?", url).First(&sticker).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				sticker = models.Sticker{URL: url}
				err = tx.Create(&sticker).Error
			}
			if err != nil {
				return err
			}
		}
		return collect(tx, actorID, sticker.ID)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Sticker")
	}
	if err != nil {
		return apperr.Storage("collect sticker", err)
	}
	return nil
}

// Remove 取消收藏，表情本身保留
func (s *StickerService) Remove(ctx context.Context, actorID, stickerID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND sticker_id = ?", actorID, stickerID).
		Delete(&models.UserSticker{})
	if res.Error != nil {
		return apperr.Storage("remove sticker", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Sticker")
	}
	return nil
}
