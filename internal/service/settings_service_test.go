package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ── 测试辅助 ──

type mockRescheduler struct {
	calls int
}

func (m *mockRescheduler) Reschedule() { m.calls++ }

func setupTestSettingsService() (SettingsService, *mockSettingsRepo, *mockRescheduler) {
	settingsRepo := newMockSettingsRepo()
	repo := &repository.Repository{
		Birthday:      newMockBirthdayRepo(),
		User:          newMockUserRepo(),
		EmailSettings: settingsRepo,
	}
	svc := NewSettingsService(repo, zap.NewNop())
	resched := &mockRescheduler{}
	svc.SetRescheduler(resched)
	return svc, settingsRepo, resched
}

// ── Get 测试 ──

func TestSettingsService_Get_DefaultsWhenUnset(t *testing.T) {
	svc, _, _ := setupTestSettingsService()

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if settings.Enabled {
		t.Error("默认设置应为未启用")
	}
	if settings.ReminderTime != "09:00" {
		t.Errorf("默认提醒时间应为 09:00，实际=%s", settings.ReminderTime)
	}
	if settings.SMTPPort != 587 {
		t.Errorf("默认 SMTP 端口应为 587，实际=%d", settings.SMTPPort)
	}
	if settings.Recipients == nil {
		t.Error("Recipients 应为空切片而非 nil")
	}
}

// ── Update 测试 ──

func TestSettingsService_Update_FullReplace(t *testing.T) {
	svc, _, resched := setupTestSettingsService()
	ctx := context.Background()

	req := &dto.EmailSettingsRequest{
		Enabled:      true,
		SMTPHost:     "smtp.example.com",
		SMTPPort:     465,
		SMTPUsername: "notify@example.com",
		SMTPPassword: "app-password",
		FromEmail:    "notify@example.com",
		Recipients:   []string{"alice@example.com"},
		ReminderTime: "07:30",
		TestMode:     true,
		AIEnabled:    true,
	}

	result, err := svc.Update(ctx, req)
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if !result.Enabled || result.ReminderTime != "07:30" || result.SMTPPort != 465 {
		t.Errorf("更新结果不符: %+v", result)
	}
	if resched.calls != 1 {
		t.Errorf("保存后应触发 1 次调度重建，实际=%d", resched.calls)
	}

	// 再次读取与写入一致
	got, _ := svc.Get(ctx)
	if got.ReminderTime != "07:30" || len(got.Recipients) != 1 {
		t.Errorf("读取内容与写入不一致: %+v", got)
	}
}

func TestSettingsService_Update_Defaults(t *testing.T) {
	svc, _, _ := setupTestSettingsService()

	// 提醒时间与端口缺省时回落默认值
	result, err := svc.Update(context.Background(), &dto.EmailSettingsRequest{Enabled: true})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.ReminderTime != "09:00" {
		t.Errorf("缺省提醒时间应回落 09:00，实际=%s", result.ReminderTime)
	}
	if result.SMTPPort != 587 {
		t.Errorf("缺省端口应回落 587，实际=%d", result.SMTPPort)
	}
}

func TestSettingsService_Update_OmittedRecipients(t *testing.T) {
	svc, settingsRepo, _ := setupTestSettingsService()

	// 请求体省略 recipients（nil）：零收件人是合法状态，
	// 落库值必须是空列表而非 nil（nil 经 Valuer 会变成 SQL NULL）
	result, err := svc.Update(context.Background(), &dto.EmailSettingsRequest{Enabled: true})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Recipients == nil || len(result.Recipients) != 0 {
		t.Errorf("响应收件人应为空列表，实际 %v", result.Recipients)
	}
	if settingsRepo.settings.Recipients == nil {
		t.Error("落库收件人不得为 nil")
	}
	if v, err := settingsRepo.settings.Recipients.Value(); err != nil || v != "" {
		t.Errorf("落库序列化应为空串，实际 v=%v err=%v", v, err)
	}
}

func TestSettingsService_Update_InvalidReminderTime(t *testing.T) {
	svc, _, resched := setupTestSettingsService()

	for _, bad := range []string{"25:00", "9:5", "0930", "09:60", "abc"} {
		_, err := svc.Update(context.Background(), &dto.EmailSettingsRequest{ReminderTime: bad})
		if !errors.Is(err, ErrInvalidReminderTime) {
			t.Errorf("%q 应返回 ErrInvalidReminderTime，实际: %v", bad, err)
		}
	}
	if resched.calls != 0 {
		t.Error("校验失败不应触发调度重建")
	}
}
