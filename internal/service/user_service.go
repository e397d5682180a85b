package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameTaken    = errors.New("用户名已存在")
	ErrCannotDeleteSelf = errors.New("不能删除自己的账号")
)

// UserService 用户管理业务接口（仅管理员可用，权限在路由层校验）
type UserService interface {
	List(ctx context.Context) ([]dto.UserResponse, error)
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	ResetPassword(ctx context.Context, username string, req *dto.ResetPasswordRequest) error
	// Delete 删除用户；callerUsername 用于阻止删除自己
	Delete(ctx context.Context, username, callerUsername string) error
	// EnsureDefaultAdmin 用户表为空时创建配置中的默认管理员（进程启动时调用）
	EnsureDefaultAdmin(ctx context.Context) error
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, logger: logger}
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.User.List(ctx)
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.UserResponse{
			Username: u.Username,
			Disabled: u.Disabled,
			IsAdmin:  u.IsAdmin,
		})
	}
	return out, nil
}

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("生成密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Disabled:     false,
		IsAdmin:      req.IsAdmin,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return &dto.UserResponse{
		Username: user.Username,
		Disabled: user.Disabled,
		IsAdmin:  user.IsAdmin,
	}, nil
}

func (s *userService) ResetPassword(ctx context.Context, username string, req *dto.ResetPasswordRequest) error {
	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("生成密码哈希失败", zap.Error(err))
		return err
	}

	user.PasswordHash = string(hash)
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置密码失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *userService) Delete(ctx context.Context, username, callerUsername string) error {
	if username == callerUsername {
		return ErrCannotDeleteSelf
	}
	if err := s.repo.User.Delete(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *userService) EnsureDefaultAdmin(ctx context.Context) error {
	total, err := s.repo.User.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     s.cfg.Admin.Username,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		return err
	}

	s.logger.Warn("已创建默认管理员账号，请尽快修改密码",
		zap.String("username", admin.Username),
	)
	return nil
}
