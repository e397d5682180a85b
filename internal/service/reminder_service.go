package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/enrich"
	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/mailer"
)

// ── 提醒模块业务错误 ──

var (
	// ErrPipelineBusy 已有一次提醒管道在执行，本次触发被跳过而非排队
	ErrPipelineBusy = errors.New("提醒管道正在执行中，本次触发已跳过")

	ErrNotificationsOff = errors.New("邮件通知未启用")
	ErrNoRecipients     = errors.New("未配置收件人")
	ErrAIDisabled       = errors.New("AI 功能未启用")
	ErrAINotConfigured  = errors.New("未配置 Anthropic API Key")
	ErrDeliveryFailed   = errors.New("邮件发送失败")
)

// ReminderService 每日提醒管道业务接口
//
// 并发约束：RunDailyPipeline 与两个手动测试入口共享同一个
// 进程级在途标志，同一时刻至多一次发送在执行；
// 第二次触发立即返回 ErrPipelineBusy，不排队。
type ReminderService interface {
	// RunDailyPipeline 执行一次完整的每日提醒：
	// 读取最新设置 → 筛选明天到期的记录 → 逐条尽力补充 AI 祝福 →
	// 合成单封摘要邮件 → 投递（测试模式只记录不发送）
	RunDailyPipeline(ctx context.Context) (*dto.RunPipelineResponse, error)
	// SendTestEmail 发送一封静态配置校验邮件
	SendTestEmail(ctx context.Context) (*dto.TestEmailResponse, error)
	// RunAITest 对单条代表性记录执行 AI 链路端到端测试
	// 未指定记录时自动选取最近一个即将到来的生日
	RunAITest(ctx context.Context, req *dto.AITestRequest) (*dto.AITestResponse, error)
}

type reminderService struct {
	cfg      *config.Config
	repo     *repository.Repository
	provider enrich.Provider
	live     mailer.Sender
	capture  mailer.Sender
	logger   *zap.Logger

	// inFlight 发送在途标志：检查-置位进入，defer 清零（成功与失败路径均覆盖）
	inFlight atomic.Bool

	// now 可注入时钟，仅测试使用
	now func() time.Time
}

// NewReminderService 创建 ReminderService 实例
// live 为真实 SMTP 投递，capture 为测试模式的记录型投递
func NewReminderService(
	cfg *config.Config,
	repo *repository.Repository,
	provider enrich.Provider,
	live mailer.Sender,
	capture mailer.Sender,
	logger *zap.Logger,
) ReminderService {
	return &reminderService{
		cfg:      cfg,
		repo:     repo,
		provider: provider,
		live:     live,
		capture:  capture,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── RunDailyPipeline ──────────────────────

func (s *reminderService) RunDailyPipeline(ctx context.Context) (*dto.RunPipelineResponse, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	// 总预算：单次慢调用不得无限拖延管道返回等待状态
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AI.PipelineBudget)
	defer cancel()

	settings, err := s.repo.EmailSettings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知设置失败", zap.Error(err))
		return nil, err
	}

	if !settings.Enabled {
		s.logger.Debug("邮件通知未启用，跳过本次提醒")
		return &dto.RunPipelineResponse{}, nil
	}
	if len(settings.Recipients) == 0 {
		s.logger.Warn("未配置收件人，跳过本次提醒")
		return &dto.RunPipelineResponse{}, nil
	}

	now := s.now()
	tomorrow := now.AddDate(0, 0, 1)

	birthdays, err := s.repo.Birthday.List(ctx)
	if err != nil {
		s.logger.Error("查询生日列表失败", zap.Error(err))
		return nil, err
	}

	var matched []model.Birthday
	for _, b := range birthdays {
		if IsTomorrow(b.Month, b.Day, now) {
			matched = append(matched, b)
		}
	}

	if len(matched) == 0 {
		s.logger.Debug("明天没有生日",
			zap.Int("month", int(tomorrow.Month())),
			zap.Int("day", tomorrow.Day()),
		)
		return &dto.RunPipelineResponse{}, nil
	}

	subject := fmt.Sprintf("Birthday Reminder - %d birthday(s) tomorrow", len(matched))
	body := s.composeDigest(ctx, matched, settings, tomorrow)

	if err := s.deliver(settings, subject, body); err != nil {
		// 当日发送视为失败，不在当日重试；下一次机会是次日的定时触发
		s.logger.Error("摘要邮件发送失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.logger.Info("每日提醒已处理",
		zap.Int("matched", len(matched)),
		zap.Int("recipients", len(settings.Recipients)),
	)
	return &dto.RunPipelineResponse{Matched: len(matched), Sent: true}, nil
}

// composeDigest 合成单封 HTML 摘要：日期标题、记录数、逐条内容
// AI 祝福按严格尽力而为策略附加：任何失败仅记日志，基础内容照常进入摘要
func (s *reminderService) composeDigest(ctx context.Context, matched []model.Birthday, settings *model.EmailSettings, tomorrow time.Time) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h2>🎂 Birthday Reminder for %s</h2>\n", tomorrow.Format("January 2, 2006"))
	b.WriteString("<p>The following people have birthdays tomorrow:</p>\n<ul>\n")

	aiActive := settings.AIEnabled && settings.AnthropicAPIKey != ""

	for i := range matched {
		record := &matched[i]

		var age *int
		ageInfo := ""
		if record.BirthYear != nil {
			a := AgeInYear(*record.BirthYear, tomorrow.Year())
			age = &a
			ageInfo = fmt.Sprintf(" (turning %d)", a)
		}

		noteInfo := ""
		if record.Note != "" {
			noteInfo = fmt.Sprintf(" - <i>%s</i>", html.EscapeString(record.Note))
		}

		fmt.Fprintf(&b, "<li><strong>%s</strong>%s%s", html.EscapeString(record.Name), ageInfo, noteInfo)

		if aiActive {
			if suggestions := s.enrichRecord(ctx, record, age, settings.AnthropicAPIKey); suggestions != nil {
				writeEnrichment(&b, suggestions)
			}
		}

		b.WriteString("</li>\n")
	}

	b.WriteString("</ul>\n")
	b.WriteString("<p><small>This is an automated reminder from your Birthday Tracker.</small></p>\n")
	b.WriteString("</body></html>")
	return b.String()
}

// enrichRecord 单条记录的 AI 祝福调用；失败返回 nil（降级为无祝福）
// 单次调用超时独立于总预算，慢调用不会吃掉后续记录的配额之外的时间
func (s *reminderService) enrichRecord(ctx context.Context, record *model.Birthday, age *int, apiKey string) *enrich.Suggestions {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AI.RequestTimeout)
	defer cancel()

	suggestions, err := s.provider.Enrich(callCtx, enrich.Request{
		APIKey: apiKey,
		Name:   record.Name,
		Age:    age,
		Note:   record.Note,
	})
	if err != nil {
		s.logger.Warn("AI 祝福生成失败，该记录降级为基础内容",
			zap.String("name", record.Name),
			zap.Error(err),
		)
		return nil
	}
	return suggestions
}

// writeEnrichment 输出祝福段落与礼物建议列表
func writeEnrichment(b *strings.Builder, s *enrich.Suggestions) {
	if s.Message != "" {
		fmt.Fprintf(b, "<br><br><em>💭 %s</em>", html.EscapeString(s.Message))
	}
	if len(s.Gifts) > 0 {
		b.WriteString("<br><br><strong>🎁 Gift Ideas:</strong><ul style='margin-top: 5px;'>")
		for _, gift := range s.Gifts {
			fmt.Fprintf(b, "<li>%s</li>", html.EscapeString(gift))
		}
		b.WriteString("</ul>")
	}
}

// deliver 按当前设置投递：测试模式路由到记录型通道，不做网络 I/O
func (s *reminderService) deliver(settings *model.EmailSettings, subject, body string) error {
	msg := &mailer.Message{
		From:     settings.FromEmail,
		To:       settings.Recipients,
		Subject:  subject,
		HTMLBody: body,
	}

	if settings.TestMode {
		s.logger.Info("测试模式：邮件已记录，未实际发送",
			zap.Strings("to", msg.To),
			zap.String("subject", subject),
		)
		return s.capture.Send(mailer.SMTPConfig{}, msg)
	}

	return s.live.Send(mailer.SMTPConfig{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		Username: settings.SMTPUsername,
		Password: settings.SMTPPassword,
	}, msg)
}

// acquire 获取发送在途标志；已被占用时返回 ErrPipelineBusy
func (s *reminderService) acquire() (func(), error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("已有一次发送在执行，本次触发跳过")
		return nil, ErrPipelineBusy
	}
	return func() { s.inFlight.Store(false) }, nil
}

// ────────────────────── SendTestEmail ──────────────────────

func (s *reminderService) SendTestEmail(ctx context.Context) (*dto.TestEmailResponse, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	settings, err := s.repo.EmailSettings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知设置失败", zap.Error(err))
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrNotificationsOff
	}
	if len(settings.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	body := `<html>
<body>
    <h2>🎂 Birthday Tracker - Test Email</h2>
    <p>This is a test email from your Birthday Tracker application.</p>
    <p><strong>If you received this, your email configuration is working correctly!</strong></p>
    <hr>
    <p><small>Sent from Birthday Tracker</small></p>
</body>
</html>`

	if err := s.deliver(settings, "🎂 Birthday Tracker - Test Email", body); err != nil {
		s.logger.Error("测试邮件发送失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return &dto.TestEmailResponse{Recipients: len(settings.Recipients)}, nil
}

// ────────────────────── RunAITest ──────────────────────

func (s *reminderService) RunAITest(ctx context.Context, req *dto.AITestRequest) (*dto.AITestResponse, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	settings, err := s.repo.EmailSettings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知设置失败", zap.Error(err))
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrNotificationsOff
	}
	if len(settings.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if !settings.AIEnabled {
		return nil, ErrAIDisabled
	}
	if settings.AnthropicAPIKey == "" {
		return nil, ErrAINotConfigured
	}

	// 确定代表性记录：显式指定，或最近一个即将到来的生日
	now := s.now()
	var target *model.Birthday
	if req != nil && req.RecordID != "" {
		target, err = s.repo.Birthday.GetByID(ctx, req.RecordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBirthdayNotFound
			}
			return nil, err
		}
	} else {
		birthdays, err := s.repo.Birthday.List(ctx)
		if err != nil {
			return nil, err
		}
		target = NextOccurrence(birthdays, now)
		if target == nil {
			return nil, ErrNoBirthdays
		}
	}

	daysUntil := DaysUntilNextOccurrence(target.Month, target.Day, now)
	occurrence := now.AddDate(0, 0, daysUntil)

	var age *int
	ageInfo := ""
	if target.BirthYear != nil {
		a := AgeInYear(*target.BirthYear, occurrence.Year())
		age = &a
		ageInfo = fmt.Sprintf(" (turning %d)", a)
	}

	// AI 链路测试中生成失败是被测对象本身的故障，直接上抛而不降级
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AI.RequestTimeout)
	defer cancel()
	suggestions, err := s.provider.Enrich(callCtx, enrich.Request{
		APIKey: settings.AnthropicAPIKey,
		Name:   target.Name,
		Age:    age,
		Note:   target.Note,
	})
	if err != nil {
		s.logger.Error("AI 测试生成失败", zap.String("name", target.Name), zap.Error(err))
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<html><body>\n")
	b.WriteString("<h2>🎂 AI Feature Test - Next Upcoming Birthday</h2>\n")
	b.WriteString("<p><em>This is a test email showing how AI will enhance your birthday reminders.</em></p>\n")
	fmt.Fprintf(&b, "<p><strong>Next birthday: %s (%d days away)</strong></p>\n<hr>\n<ul>\n",
		occurrence.Format("January 2, 2006"), daysUntil)
	fmt.Fprintf(&b, "<li><strong>%s</strong>%s", html.EscapeString(target.Name), ageInfo)
	if target.Note != "" {
		fmt.Fprintf(&b, " - <i>%s</i>", html.EscapeString(target.Note))
	}
	writeEnrichment(&b, suggestions)
	b.WriteString("</li>\n</ul>\n<hr>\n")
	b.WriteString("<p><small>This is a test email from your Birthday Tracker showing AI-enhanced content.</small></p>\n")
	b.WriteString("</body></html>")

	if err := s.deliver(settings, "🎂 Birthday Tracker - AI Test (Next Upcoming Birthday)", b.String()); err != nil {
		s.logger.Error("AI 测试邮件发送失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return &dto.AITestResponse{
		RecordTested: target.Name,
		DaysUntil:    daysUntil,
		Recipients:   len(settings.Recipients),
	}, nil
}
