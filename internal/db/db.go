package db

import (
	"fmt"
	"time"

	"warmwall/internal/logging"
	"warmwall/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured driver. It does not migrate.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	logging.Info().Str("driver", driver).Msg("database connection established")
	return conn, nil
}

// Migrate creates or updates every table and seeds the static channels.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logging.Info().Msg("database migration completed")
	return seedChannels(conn)
}

func seedChannels(conn *gorm.DB) error {
	// 已有板块数据则跳过
	var count int64
	if err := conn.Model(&models.Channel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logging.Debug().Msg("channels already seeded, skipping")
		return nil
	}

	// 第一个板块 id=1 即默认板块
	channels := []models.Channel{
		{Slug: "help", Name: "解忧杂货店", Icon: "📪"},
		{Slug: models.HollowSlug, Name: "树洞", Icon: "🌲"},
		{Slug: "stories", Name: "故事集", Icon: "📖"},
	}

	for _, ch := range channels {
		ch := ch
		if err := conn.Create(&ch).Error; err != nil {
			return fmt.Errorf("seed channel %s: %w", ch.Slug, err)
		}
	}
	logging.Info().Int("count", len(channels)).Msg("initial channels created")
	return nil
}
