package router

import (
	"context"
	"net/http"
	"strconv"

	"warmwall/internal/handlers"
	"warmwall/internal/middleware"
	"warmwall/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由依赖的服务
type Deps struct {
	Tokens   *services.TokenService
	Users    *services.UserService
	Feed     *services.FeedService
	Social   *services.SocialService
	Stickers *services.StickerService
	Media    *services.MediaService
	LLM      *services.LLMService
	Tasks    *services.TaskQueue

	CORSAllowOrigins []string
	MediaMaxBytes    int64
}

// New builds the engine with the global middleware and every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(d.CORSAllowOrigins)))
	// SSE 需要逐块 flush，媒体文件本身已压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/ai/chat", "/api/media/", "/metrics"})))
	r.Use(middleware.LoadUser(d.Tokens))

	RegisterRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// touchActivity 活跃时间走后台队列，同一用户排队中的更新只保留一次
func touchActivity(d Deps) func(uint) {
	if d.Tasks == nil {
		return nil
	}
	return func(userID uint) {
		d.Tasks.DispatchOnce("last_active", "last_active:"+strconv.FormatUint(uint64(userID), 10), func(ctx context.Context) error {
			return d.Users.TouchActivity(ctx, userID)
		})
	}
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.Users)
	messageHandler := handlers.NewMessageHandler(d.Feed)
	userHandler := handlers.NewUserHandler(d.Users, d.Social)
	dmHandler := handlers.NewDirectMessageHandler(d.Social)
	mediaHandler := handlers.NewMediaHandler(d.Media, d.MediaMaxBytes)
	stickerHandler := handlers.NewStickerHandler(d.Stickers)
	aiHandler := handlers.NewAIHandler(d.LLM)

	authRequired := middleware.AuthRequired(touchActivity(d))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// 公共路由 (登录可选)
	api.POST("/auth/register", authHandler.Register)               // 注册
	api.POST("/auth/login", authHandler.Login)                     // 登录
	api.GET("/messages", messageHandler.List)                      // 帖子列表 ?cursor&limit&sort=hot
	api.GET("/messages/:id", messageHandler.Get)                   // 帖子详情 + 评论
	api.GET("/messages/:id/comments", messageHandler.ListComments) // 评论列表
	api.GET("/channels", messageHandler.ListChannels)              // 板块列表
	api.GET("/channels/:slug/messages", messageHandler.ListChannel)
	api.GET("/bottles/random", messageHandler.RandomBottle) // 漂流瓶
	api.GET("/users/:id/profile", userHandler.Profile)      // 用户主页
	api.GET("/media/*key", mediaHandler.Serve)              // 媒体文件

	// 受保护路由
	authorized := api.Group("")
	authorized.Use(authRequired)
	{
		authorized.POST("/messages", messageHandler.Create)
		authorized.DELETE("/messages/:id", messageHandler.Delete)
		authorized.POST("/messages/:id/like", messageHandler.ToggleLike)
		authorized.POST("/messages/:id/comments", messageHandler.CreateComment)
		authorized.DELETE("/comments/:id", messageHandler.DeleteComment)

		authorized.PUT("/users/:id/password", userHandler.ChangePassword) // 本人或管理员
		authorized.POST("/users/:id/follow", userHandler.ToggleFollow)    // 关注/取消关注
		authorized.GET("/friends", userHandler.Friends)                   // 互关好友

		authorized.GET("/direct_messages", dmHandler.Conversations)
		authorized.GET("/direct_messages/:userId", dmHandler.History)
		authorized.POST("/direct_messages", dmHandler.Send)
		authorized.POST("/direct_messages/:userId", dmHandler.Send)
		authorized.GET("/notifications/status", dmHandler.NotificationStatus)

		authorized.PUT("/upload", mediaHandler.Upload)

		authorized.POST("/stickers", stickerHandler.Create)
		authorized.GET("/stickers/mine", stickerHandler.Mine)
		authorized.POST("/stickers/collect", stickerHandler.Collect)
		authorized.DELETE("/stickers/:id", stickerHandler.Remove)

		authorized.POST("/ai/chat", aiHandler.Chat)
		authorized.POST("/ai/summarize", aiHandler.Summarize)
	}

	// 管理员路由
	admin := api.Group("/users")
	admin.Use(authRequired, middleware.AdminRequired())
	{
		admin.GET("", userHandler.List)
		admin.DELETE("/:id", userHandler.Delete)
	}
}
