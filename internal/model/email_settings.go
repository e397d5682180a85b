package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ── 收件人列表自定义类型 ──

// StringList 以逗号分隔文本落库的字符串列表，实现 GORM Scanner/Valuer 接口。
type StringList []string

// Scan 将数据库返回的 "a@x.com,b@y.com" 文本解析为 []string。
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("StringList.Scan: unsupported type %T", src)
	}
	if s == "" {
		*l = StringList{}
		return nil
	}
	parts := strings.Split(s, ",")
	list := make(StringList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	*l = list
	return nil
}

// Value 将 []string 序列化为逗号分隔文本。
// nil 序列化为空串而非 SQL NULL：recipients 列为 NOT NULL，
// "零收件人"是合法状态（管道会跳过发送）。
func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

// EmailSettings 邮件通知设置表 — 对应 email_settings（单行强类型）
//
// 整行整存整取：保存时全量替换，调度器每次触发前重新读取，
// 因此修改提醒时间无需重启进程即可生效。
type EmailSettings struct {
	Singleton       bool       `gorm:"primaryKey;default:true"                json:"-"`
	Enabled         bool       `gorm:"not null;default:false"                 json:"enabled"`
	SMTPHost        string     `gorm:"type:varchar(255);not null;default:''"  json:"smtp_host"`
	SMTPPort        int        `gorm:"not null;default:587"                   json:"smtp_port"`
	SMTPUsername    string     `gorm:"type:varchar(255);not null;default:''"  json:"smtp_username"`
	SMTPPassword    string     `gorm:"type:varchar(255);not null;default:''"  json:"smtp_password"`
	FromEmail       string     `gorm:"type:varchar(255);not null;default:''"  json:"from_email"`
	Recipients      StringList `gorm:"type:text"                              json:"recipients"`
	ReminderTime    string     `gorm:"type:varchar(5);not null;default:'09:00'" json:"reminder_time"` // HH:MM
	TestMode        bool       `gorm:"not null;default:false"                 json:"test_mode"`
	AIEnabled       bool       `gorm:"not null;default:false"                 json:"ai_enabled"`
	AnthropicAPIKey string     `gorm:"type:varchar(255);not null;default:''"  json:"anthropic_api_key"`
	BaseModel
}

// TableName 指定表名
func (EmailSettings) TableName() string { return "email_settings" }
