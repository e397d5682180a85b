package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ── 通知设置模块业务错误 ──

var (
	ErrInvalidReminderTime = errors.New("提醒时间格式无效，应为 HH:MM")
)

// reminderTimeRe 提醒时间格式 HH:MM（24 小时制，零填充）
var reminderTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidReminderTime 校验提醒时间格式；调度器建立 cron 条目前复用同一规则
func ValidReminderTime(v string) bool {
	return reminderTimeRe.MatchString(v)
}

// Rescheduler 设置保存后通知调度器重建定时任务
// 由 internal/scheduler 实现；接口定义在本包以避免循环依赖
type Rescheduler interface {
	Reschedule()
}

// SettingsService 通知设置业务接口
type SettingsService interface {
	Get(ctx context.Context) (*dto.EmailSettingsResponse, error)
	// Update 全量替换设置并触发调度器重建，新提醒时间无需重启即生效
	Update(ctx context.Context, req *dto.EmailSettingsRequest) (*dto.EmailSettingsResponse, error)
	// SetRescheduler 注入调度器（main 中调度器创建晚于 Service 聚合）
	SetRescheduler(r Rescheduler)
}

type settingsService struct {
	repo        *repository.Repository
	rescheduler Rescheduler
	logger      *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, logger: logger}
}

func (s *settingsService) SetRescheduler(r Rescheduler) {
	s.rescheduler = r
}

func (s *settingsService) Get(ctx context.Context) (*dto.EmailSettingsResponse, error) {
	settings, err := s.repo.EmailSettings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知设置失败", zap.Error(err))
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

func (s *settingsService) Update(ctx context.Context, req *dto.EmailSettingsRequest) (*dto.EmailSettingsResponse, error) {
	reminderTime := req.ReminderTime
	if reminderTime == "" {
		reminderTime = "09:00"
	}
	if !ValidReminderTime(reminderTime) {
		return nil, &ValidationError{Field: "reminder_time", Err: ErrInvalidReminderTime}
	}

	smtpPort := req.SMTPPort
	if smtpPort == 0 {
		smtpPort = 587
	}

	// 请求体省略 recipients 时归一化为空列表，而非 nil
	recipients := model.StringList(req.Recipients)
	if recipients == nil {
		recipients = model.StringList{}
	}

	settings := &model.EmailSettings{
		Singleton:       true,
		Enabled:         req.Enabled,
		SMTPHost:        req.SMTPHost,
		SMTPPort:        smtpPort,
		SMTPUsername:    req.SMTPUsername,
		SMTPPassword:    req.SMTPPassword,
		FromEmail:       req.FromEmail,
		Recipients:      recipients,
		ReminderTime:    reminderTime,
		TestMode:        req.TestMode,
		AIEnabled:       req.AIEnabled,
		AnthropicAPIKey: req.AnthropicAPIKey,
	}

	if err := s.repo.EmailSettings.Save(ctx, settings); err != nil {
		s.logger.Error("保存通知设置失败", zap.Error(err))
		return nil, err
	}

	// 重建定时任务，让新的提醒时间在下一次调度决策生效
	if s.rescheduler != nil {
		s.rescheduler.Reschedule()
	}

	s.logger.Info("通知设置已更新",
		zap.Bool("enabled", settings.Enabled),
		zap.String("reminder_time", settings.ReminderTime),
		zap.Bool("test_mode", settings.TestMode),
		zap.Bool("ai_enabled", settings.AIEnabled),
	)
	return toSettingsResponse(settings), nil
}

func toSettingsResponse(m *model.EmailSettings) *dto.EmailSettingsResponse {
	recipients := []string(m.Recipients)
	if recipients == nil {
		recipients = []string{}
	}
	return &dto.EmailSettingsResponse{
		Enabled:         m.Enabled,
		SMTPHost:        m.SMTPHost,
		SMTPPort:        m.SMTPPort,
		SMTPUsername:    m.SMTPUsername,
		SMTPPassword:    m.SMTPPassword,
		FromEmail:       m.FromEmail,
		Recipients:      recipients,
		ReminderTime:    m.ReminderTime,
		TestMode:        m.TestMode,
		AIEnabled:       m.AIEnabled,
		AnthropicAPIKey: m.AnthropicAPIKey,
		UpdatedAt:       m.UpdatedAt.Format(time.RFC3339),
	}
}
