package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
)

// BirthdayRepository 生日记录数据访问接口
type BirthdayRepository interface {
	Create(ctx context.Context, birthday *model.Birthday) error
	GetByID(ctx context.Context, id string) (*model.Birthday, error)
	Update(ctx context.Context, birthday *model.Birthday) error
	Delete(ctx context.Context, id string) error
	// List 按插入顺序返回全部记录（created_at, id 排序保证稳定）
	List(ctx context.Context) ([]model.Birthday, error)
	// FindOnDate 查询指定 (月, 日) 的记录，供日历单元格与提醒管道使用
	FindOnDate(ctx context.Context, month, day int) ([]model.Birthday, error)
}

// birthdayRepo BirthdayRepository 的 GORM 实现
type birthdayRepo struct {
	db *gorm.DB
}

// NewBirthdayRepo 创建 BirthdayRepository 实例
func NewBirthdayRepo(db *gorm.DB) BirthdayRepository {
	return &birthdayRepo{db: db}
}

func (r *birthdayRepo) Create(ctx context.Context, birthday *model.Birthday) error {
	return r.db.WithContext(ctx).Create(birthday).Error
}

func (r *birthdayRepo) GetByID(ctx context.Context, id string) (*model.Birthday, error) {
	var birthday model.Birthday
	err := r.db.WithContext(ctx).
		Where("birthday_id = ?", id).
		First(&birthday).Error
	if err != nil {
		return nil, err
	}
	return &birthday, nil
}

func (r *birthdayRepo) Update(ctx context.Context, birthday *model.Birthday) error {
	return r.db.WithContext(ctx).Save(birthday).Error
}

func (r *birthdayRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("birthday_id = ?", id).
		Delete(&model.Birthday{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *birthdayRepo) List(ctx context.Context) ([]model.Birthday, error) {
	var birthdays []model.Birthday
	err := r.db.WithContext(ctx).
		Order("created_at ASC, birthday_id ASC").
		Find(&birthdays).Error
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}

func (r *birthdayRepo) FindOnDate(ctx context.Context, month, day int) ([]model.Birthday, error) {
	var birthdays []model.Birthday
	err := r.db.WithContext(ctx).
		Where("month = ? AND day = ?", month, day).
		Order("created_at ASC, birthday_id ASC").
		Find(&birthdays).Error
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}
