package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/api/handler"
	"github.com/TechPreacher/ai-birthday-calendar/internal/api/router"
	"github.com/TechPreacher/ai-birthday-calendar/internal/enrich"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
	"github.com/TechPreacher/ai-birthday-calendar/internal/scheduler"
	"github.com/TechPreacher/ai-birthday-calendar/internal/service"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/database"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/jwt"
	applogger "github.com/TechPreacher/ai-birthday-calendar/pkg/logger"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/mailer"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与登录限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器与邮件/AI 依赖
	jwtMgr := jwt.NewManager(&cfg.Auth)
	provider := enrich.NewAnthropicProvider(cfg.AI.Model, logger)
	live := mailer.NewGomailSender(logger)
	capture := mailer.NewCaptureSender()

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, provider, live, capture, logger)
	h := handler.NewHandler(svc)

	// 6.1 首次启动时创建默认管理员
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.User.EnsureDefaultAdmin(bootCtx); err != nil {
		bootCancel()
		logger.Fatal("初始化默认管理员失败", zap.Error(err))
	}
	bootCancel()

	// 7. 启动每日提醒调度器
	sched := scheduler.New(svc, cfg.AI.PipelineBudget, logger)
	svc.Settings.SetRescheduler(sched)

	schedCtx, schedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sched.Start(schedCtx); err != nil {
		schedCancel()
		logger.Fatal("启动提醒调度器失败", zap.Error(err))
	}
	schedCancel()

	// 8. 初始化路由并启动 HTTP 服务器（优雅关闭）
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止调度器（等待在途提醒任务结束）
	sched.Stop()

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
