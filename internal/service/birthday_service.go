package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ── 生日模块业务错误 ──

var (
	ErrBirthdayNotFound = errors.New("生日记录不存在")
	ErrEmptyName        = errors.New("姓名不能为空")
	ErrInvalidContact   = errors.New("联系人分类无效")
	ErrNoBirthdays      = errors.New("系统中没有生日记录")
)

// ValidationError 记录字段校验错误（创建/更新时同步拒绝，不落库）
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("字段 %s 校验失败: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BirthdayService 生日记录业务接口
type BirthdayService interface {
	List(ctx context.Context) ([]dto.BirthdayResponse, error)
	GetByID(ctx context.Context, id string) (*dto.BirthdayResponse, error)
	Create(ctx context.Context, req *dto.CreateBirthdayRequest) (*dto.BirthdayResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateBirthdayRequest) (*dto.BirthdayResponse, error)
	Delete(ctx context.Context, id string) error
	FindOnDate(ctx context.Context, month, day int) ([]dto.BirthdayResponse, error)
	// Upcoming 返回距今最近的一条生日（当日到期视为距离 0）
	Upcoming(ctx context.Context) (*dto.UpcomingBirthdayResponse, error)
}

type birthdayService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewBirthdayService 创建 BirthdayService 实例
func NewBirthdayService(repo *repository.Repository, logger *zap.Logger) BirthdayService {
	return &birthdayService{repo: repo, logger: logger}
}

func (s *birthdayService) List(ctx context.Context) ([]dto.BirthdayResponse, error) {
	birthdays, err := s.repo.Birthday.List(ctx)
	if err != nil {
		s.logger.Error("查询生日列表失败", zap.Error(err))
		return nil, err
	}

	out := make([]dto.BirthdayResponse, 0, len(birthdays))
	for i := range birthdays {
		out = append(out, toBirthdayResponse(&birthdays[i]))
	}
	return out, nil
}

func (s *birthdayService) GetByID(ctx context.Context, id string) (*dto.BirthdayResponse, error) {
	birthday, err := s.repo.Birthday.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBirthdayNotFound
		}
		s.logger.Error("查询生日记录失败", zap.Error(err))
		return nil, err
	}
	resp := toBirthdayResponse(birthday)
	return &resp, nil
}

func (s *birthdayService) Create(ctx context.Context, req *dto.CreateBirthdayRequest) (*dto.BirthdayResponse, error) {
	contactType := model.ContactType(req.ContactType)
	if req.ContactType == "" {
		contactType = model.ContactTypeFriend
	}

	birthday := &model.Birthday{
		Name:        strings.TrimSpace(req.Name),
		Month:       req.Month,
		Day:         req.Day,
		BirthYear:   req.BirthYear,
		Note:        req.Note,
		ContactType: contactType,
	}

	if err := validateBirthday(birthday); err != nil {
		return nil, err
	}

	if err := s.repo.Birthday.Create(ctx, birthday); err != nil {
		s.logger.Error("创建生日记录失败", zap.Error(err))
		return nil, err
	}

	resp := toBirthdayResponse(birthday)
	return &resp, nil
}

func (s *birthdayService) Update(ctx context.Context, id string, req *dto.UpdateBirthdayRequest) (*dto.BirthdayResponse, error) {
	birthday, err := s.repo.Birthday.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBirthdayNotFound
		}
		s.logger.Error("查询生日记录失败", zap.Error(err))
		return nil, err
	}

	// 缺省字段保留原值，整行替换落库；ID 不可变
	if req.Name != nil {
		birthday.Name = strings.TrimSpace(*req.Name)
	}
	if req.Month != nil {
		birthday.Month = *req.Month
	}
	if req.Day != nil {
		birthday.Day = *req.Day
	}
	if req.BirthYear != nil {
		birthday.BirthYear = req.BirthYear
	}
	if req.Note != nil {
		birthday.Note = *req.Note
	}
	if req.ContactType != nil {
		birthday.ContactType = model.ContactType(*req.ContactType)
	}

	if err := validateBirthday(birthday); err != nil {
		return nil, err
	}

	if err := s.repo.Birthday.Update(ctx, birthday); err != nil {
		s.logger.Error("更新生日记录失败", zap.Error(err))
		return nil, err
	}

	resp := toBirthdayResponse(birthday)
	return &resp, nil
}

func (s *birthdayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Birthday.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBirthdayNotFound
		}
		s.logger.Error("删除生日记录失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *birthdayService) FindOnDate(ctx context.Context, month, day int) ([]dto.BirthdayResponse, error) {
	if err := ValidateMonthDay(month, day); err != nil {
		return nil, &ValidationError{Field: "month/day", Err: err}
	}

	birthdays, err := s.repo.Birthday.FindOnDate(ctx, month, day)
	if err != nil {
		s.logger.Error("按日查询生日失败", zap.Error(err))
		return nil, err
	}

	out := make([]dto.BirthdayResponse, 0, len(birthdays))
	for i := range birthdays {
		out = append(out, toBirthdayResponse(&birthdays[i]))
	}
	return out, nil
}

func (s *birthdayService) Upcoming(ctx context.Context) (*dto.UpcomingBirthdayResponse, error) {
	birthdays, err := s.repo.Birthday.List(ctx)
	if err != nil {
		s.logger.Error("查询生日列表失败", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	next := NextOccurrence(birthdays, now)
	if next == nil {
		return nil, ErrNoBirthdays
	}

	daysUntil := DaysUntilNextOccurrence(next.Month, next.Day, now)
	resp := &dto.UpcomingBirthdayResponse{
		Birthday:  toBirthdayResponse(next),
		DaysUntil: daysUntil,
	}
	if next.BirthYear != nil {
		age := AgeInYear(*next.BirthYear, now.AddDate(0, 0, daysUntil).Year())
		resp.Age = &age
	}
	return resp, nil
}

// ── 校验与转换 ──

// validateBirthday 落库前的记录校验
// 月/日合法性（2月29日 无条件允许）、姓名非空、分类属于闭集
func validateBirthday(b *model.Birthday) error {
	if b.Name == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if err := ValidateMonthDay(b.Month, b.Day); err != nil {
		return &ValidationError{Field: "month/day", Err: err}
	}
	if !b.ContactType.Valid() {
		return &ValidationError{Field: "contact_type", Err: ErrInvalidContact}
	}
	return nil
}

func toBirthdayResponse(b *model.Birthday) dto.BirthdayResponse {
	return dto.BirthdayResponse{
		ID:          b.BirthdayID,
		Name:        b.Name,
		Month:       b.Month,
		Day:         b.Day,
		BirthYear:   b.BirthYear,
		Note:        b.Note,
		ContactType: string(b.ContactType),
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}
