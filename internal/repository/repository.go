package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Birthday      BirthdayRepository
	User          UserRepository
	EmailSettings EmailSettingsRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Birthday:      NewBirthdayRepo(db),
		User:          NewUserRepo(db),
		EmailSettings: NewEmailSettingsRepo(db),
	}
}
