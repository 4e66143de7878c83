package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"warmwall/internal/config"
	"warmwall/internal/db"
	"warmwall/internal/logging"
	"warmwall/internal/router"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Warm wall API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables, seed channels, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := setup()
			if err != nil {
				return err
			}
			return db.Migrate(conn)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "purge-user <id>",
		Short: "Delete a user and everything they authored (safe to re-run)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			_, conn, err := setup()
			if err != nil {
				return err
			}
			return services.NewUserService(conn, nil).PurgeUser(context.Background(), uint(id))
		},
	})

	return root
}

// setup 读取配置、初始化日志并连接数据库
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logging.Error().Err(err).Str("driver", cfg.DBDriver).Msg("database connection failed")
		return nil, nil, err
	}
	return cfg, conn, nil
}

func runServe() error {
	cfg, conn, err := setup()
	if err != nil {
		return err
	}
	if cfg.UsingDevSecret() {
		logging.Warn().Msg("JWT_SECRET not set, using development fallback secret")
	}
	if err := db.Migrate(conn); err != nil {
		logging.Error().Err(err).Msg("database migration failed")
		return err
	}

	gin.SetMode(cfg.GinMode)

	// 后台副作用队列（活跃时间、浏览数）
	tasks := services.NewTaskQueue(cfg.TaskQueueSize)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	engine := router.New(router.Deps{
		Tokens:   tokens,
		Users:    services.NewUserService(conn, tokens),
		Feed:     services.NewFeedService(conn, tasks),
		Social:   services.NewSocialService(conn),
		Stickers: services.NewStickerService(conn),
		Media:    services.NewMediaService(&services.DiskStore{Root: cfg.MediaDir}, cfg.MediaMaxBytes),
		LLM: services.NewLLMService(services.LLMConfig{
			BaseURL: cfg.AIBaseURL,
			APIKey:  cfg.AIAPIKey,
			Model:   cfg.AIModel,
			Timeout: cfg.AITimeout,
		}),
		Tasks:            tasks,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		MediaMaxBytes:    cfg.MediaMaxBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("port", cfg.Port).Str("db", cfg.DBDriver).Msg("warmwall server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("server failed")
			tasks.Close()
			return err
		}
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	// 请求处理完之后再排空队列
	tasks.Close()
	logging.Info().Msg("server stopped")
	return nil
}
