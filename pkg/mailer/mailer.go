package mailer

import (
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ── 邮件投递 ──
//
// Sender 抽象投递通道：生产环境走 SMTP，测试模式与单元测试
// 走 CaptureSender（只记录、不联网）。

// SMTPConfig 单次投递使用的 SMTP 连接参数
// 来自通知设置行，随设置保存即时生效，无需重启
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Message 单封邮件
type Message struct {
	From     string
	To       []string
	Subject  string
	HTMLBody string
}

// Sender 邮件投递接口
type Sender interface {
	Send(cfg SMTPConfig, msg *Message) error
}

// whitespaceRe 匹配一切空白（含不间断空格）
// Gmail 应用专用密码展示时带空格，用户常整段粘贴
var whitespaceRe = regexp.MustCompile(`\s`)

// GomailSender 基于 gomail 的 SMTP 投递实现（STARTTLS）
type GomailSender struct {
	logger *zap.Logger
}

// NewGomailSender 创建 GomailSender
func NewGomailSender(logger *zap.Logger) *GomailSender {
	return &GomailSender{logger: logger}
}

// Send 通过 SMTP 发送邮件
func (s *GomailSender) Send(cfg SMTPConfig, msg *Message) error {
	if cfg.Host == "" {
		return fmt.Errorf("未配置 SMTP 服务器")
	}

	password := whitespaceRe.ReplaceAllString(cfg.Password, "")

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("SMTP 发送失败: %w", err)
	}

	s.logger.Info("邮件已发送",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// captureLimit 记录缓冲上限：测试模式长期开启时只保留最近的邮件
const captureLimit = 100

// CaptureSender 只记录不发送的投递实现
// 测试模式下替代真实 SMTP：保留"本应发出"的完整内容供检查
type CaptureSender struct {
	mu       sync.Mutex
	captured []Message
}

// NewCaptureSender 创建 CaptureSender
func NewCaptureSender() *CaptureSender {
	return &CaptureSender{}
}

// Send 记录邮件内容并返回成功；超出上限时淘汰最旧的记录
func (s *CaptureSender) Send(_ SMTPConfig, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = append(s.captured, *msg)
	if len(s.captured) > captureLimit {
		s.captured = append(s.captured[:0:0], s.captured[len(s.captured)-captureLimit:]...)
	}
	return nil
}

// Captured 返回已记录邮件的副本
func (s *CaptureSender) Captured() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.captured))
	copy(out, s.captured)
	return out
}

// Reset 清空已记录邮件
func (s *CaptureSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = nil
}
