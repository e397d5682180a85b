package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
)

// EmailSettingsRepository 邮件通知设置数据访问接口（单行表）
type EmailSettingsRepository interface {
	// Get 读取设置；行不存在时返回零值默认设置而非错误
	Get(ctx context.Context) (*model.EmailSettings, error)
	// Save 全量替换设置行（不存在则插入）
	Save(ctx context.Context, settings *model.EmailSettings) error
}

type emailSettingsRepo struct {
	db *gorm.DB
}

// NewEmailSettingsRepo 创建 EmailSettingsRepository 实例
func NewEmailSettingsRepo(db *gorm.DB) EmailSettingsRepository {
	return &emailSettingsRepo{db: db}
}

func (r *emailSettingsRepo) Get(ctx context.Context) (*model.EmailSettings, error) {
	var settings model.EmailSettings
	err := r.db.WithContext(ctx).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultEmailSettings(), nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *emailSettingsRepo) Save(ctx context.Context, settings *model.EmailSettings) error {
	settings.Singleton = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}

// defaultEmailSettings 进程首次运行、设置行尚未写入时的默认值
func defaultEmailSettings() *model.EmailSettings {
	return &model.EmailSettings{
		Singleton:    true,
		Enabled:      false,
		SMTPPort:     587,
		Recipients:   model.StringList{},
		ReminderTime: "09:00",
	}
}
