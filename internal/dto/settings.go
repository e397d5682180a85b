package dto

// ── 通知设置模块 DTO ──

// EmailSettingsRequest 替换邮件通知设置请求（整行全量替换）
type EmailSettingsRequest struct {
	Enabled         bool     `json:"enabled"`
	SMTPHost        string   `json:"smtp_host"`
	SMTPPort        int      `json:"smtp_port"       binding:"omitempty,min=1,max=65535"`
	SMTPUsername    string   `json:"smtp_username"`
	SMTPPassword    string   `json:"smtp_password"`
	FromEmail       string   `json:"from_email"      binding:"omitempty,email"`
	Recipients      []string `json:"recipients"      binding:"dive,email"`
	ReminderTime    string   `json:"reminder_time"`
	TestMode        bool     `json:"test_mode"`
	AIEnabled       bool     `json:"ai_enabled"`
	AnthropicAPIKey string   `json:"anthropic_api_key"`
}

// EmailSettingsResponse 邮件通知设置响应
type EmailSettingsResponse struct {
	Enabled         bool     `json:"enabled"`
	SMTPHost        string   `json:"smtp_host"`
	SMTPPort        int      `json:"smtp_port"`
	SMTPUsername    string   `json:"smtp_username"`
	SMTPPassword    string   `json:"smtp_password"`
	FromEmail       string   `json:"from_email"`
	Recipients      []string `json:"recipients"`
	ReminderTime    string   `json:"reminder_time"`
	TestMode        bool     `json:"test_mode"`
	AIEnabled       bool     `json:"ai_enabled"`
	AnthropicAPIKey string   `json:"anthropic_api_key"`
	UpdatedAt       string   `json:"updated_at"`
}

// AITestRequest AI 功能端到端测试请求
// RecordID 缺省时自动选取最近一个即将到来的生日
type AITestRequest struct {
	RecordID string `json:"record_id" binding:"omitempty,uuid"`
}

// AITestResponse AI 功能测试响应
type AITestResponse struct {
	RecordTested string `json:"record_tested"`
	DaysUntil    int    `json:"days_until"`
	Recipients   int    `json:"recipients"`
}

// TestEmailResponse 测试邮件发送响应
type TestEmailResponse struct {
	Recipients int `json:"recipients"`
}

// RunPipelineResponse 手动触发每日提醒响应
type RunPipelineResponse struct {
	Matched int  `json:"matched"`
	Sent    bool `json:"sent"`
}
