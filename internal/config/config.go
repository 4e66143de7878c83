package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret 仅在 debug 模式下作为兜底，部署环境必须配置 JWT_SECRET
const DevJWTSecret = "fallback-dev-secret"

type Config struct {
	Port    string
	GinMode string

	DBDriver    string // postgres | sqlite
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	MediaDir      string
	MediaMaxBytes int64

	CORSAllowOrigins []string

	LogLevel  string
	LogFormat string

	TaskQueueSize int
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// .env 不存在时直接使用系统环境变量
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "release"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         getDuration("TOKEN_TTL", 7*24*time.Hour),
		AIBaseURL:        getEnv("AI_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIModel:          getEnv("AI_MODEL", "glm-4.6v-flash"),
		AITimeout:        getDuration("AI_TIMEOUT", 60*time.Second),
		MediaDir:         getEnv("MEDIA_DIR", "./data/media"),
		MediaMaxBytes:    int64(getInt("MEDIA_MAX_BYTES", 5*1024*1024)),
		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		TaskQueueSize:    getInt("TASK_QUEUE_SIZE", 1000),
	}

	if cfg.DatabaseURL == "" {
		switch cfg.DBDriver {
		case "sqlite":
			cfg.DatabaseURL = "warmwall.db"
		default:
			cfg.DatabaseURL = "host=localhost user=postgres password=postgres dbname=warmwall port=5432 sslmode=disable"
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode != "debug" {
			return nil, fmt.Errorf("JWT_SECRET must be set when GIN_MODE=%s", cfg.GinMode)
		}
		cfg.JWTSecret = DevJWTSecret
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

// UsingDevSecret reports whether the dev fallback secret is active.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
