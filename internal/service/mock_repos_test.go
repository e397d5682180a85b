package service

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/TechPreacher/ai-birthday-calendar/internal/enrich"
	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
)

// ── Mock BirthdayRepository ──

type mockBirthdayRepo struct {
	birthdays []*model.Birthday
	seq       int
}

func newMockBirthdayRepo() *mockBirthdayRepo {
	return &mockBirthdayRepo{}
}

func (m *mockBirthdayRepo) Create(_ context.Context, birthday *model.Birthday) error {
	if birthday.BirthdayID == "" {
		m.seq++
		birthday.BirthdayID = fmt.Sprintf("bd-%03d", m.seq)
	}
	m.birthdays = append(m.birthdays, birthday)
	return nil
}

func (m *mockBirthdayRepo) GetByID(_ context.Context, id string) (*model.Birthday, error) {
	for _, b := range m.birthdays {
		if b.BirthdayID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBirthdayRepo) Update(_ context.Context, birthday *model.Birthday) error {
	for i, b := range m.birthdays {
		if b.BirthdayID == birthday.BirthdayID {
			m.birthdays[i] = birthday
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockBirthdayRepo) Delete(_ context.Context, id string) error {
	for i, b := range m.birthdays {
		if b.BirthdayID == id {
			m.birthdays = append(m.birthdays[:i], m.birthdays[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockBirthdayRepo) List(_ context.Context) ([]model.Birthday, error) {
	result := make([]model.Birthday, 0, len(m.birthdays))
	for _, b := range m.birthdays {
		result = append(result, *b)
	}
	return result, nil
}

func (m *mockBirthdayRepo) FindOnDate(_ context.Context, month, day int) ([]model.Birthday, error) {
	var result []model.Birthday
	for _, b := range m.birthdays {
		if b.Month == month && b.Day == day {
			result = append(result, *b)
		}
	}
	return result, nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users []*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%03d", m.seq)
	}
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	for i, u := range m.users {
		if u.UserID == user.UserID {
			m.users[i] = user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Delete(_ context.Context, username string) error {
	for i, u := range m.users {
		if u.Username == username {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

// ── Mock EmailSettingsRepository ──

type mockSettingsRepo struct {
	settings *model.EmailSettings
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{}
}

func (m *mockSettingsRepo) Get(_ context.Context) (*model.EmailSettings, error) {
	if m.settings == nil {
		return &model.EmailSettings{
			Singleton:    true,
			SMTPPort:     587,
			Recipients:   model.StringList{},
			ReminderTime: "09:00",
		}, nil
	}
	copied := *m.settings
	return &copied, nil
}

func (m *mockSettingsRepo) Save(_ context.Context, settings *model.EmailSettings) error {
	settings.Singleton = true
	copied := *settings
	m.settings = &copied
	return nil
}

// ── Mock enrich.Provider ──

// mockProvider 可配置的 AI 生成 mock：固定返回值或固定错误
type mockProvider struct {
	mu          sync.Mutex
	suggestions *enrich.Suggestions
	err         error
	calls       int
}

func (m *mockProvider) Enrich(_ context.Context, _ enrich.Request) (*enrich.Suggestions, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.suggestions, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// blockingProvider 在 Enrich 内阻塞直到 release 关闭，用于并发互斥测试
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *blockingProvider) Enrich(ctx context.Context, _ enrich.Request) (*enrich.Suggestions, error) {
	close(p.started)
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &enrich.Suggestions{Message: "祝福", Gifts: []string{"礼物"}}, nil
}
