package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/config"
	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ── 测试辅助 ──

func setupTestUserService() (UserService, *mockUserRepo) {
	userRepo := newMockUserRepo()
	repo := &repository.Repository{
		Birthday:      newMockBirthdayRepo(),
		User:          userRepo,
		EmailSettings: newMockSettingsRepo(),
	}
	cfg := &config.Config{
		Admin: config.AdminConfig{Username: "admin", Password: "changeme"},
	}
	svc := NewUserService(cfg, repo, zap.NewNop())
	return svc, userRepo
}

// ── Create 测试 ──

func TestUserService_Create_Success(t *testing.T) {
	svc, _ := setupTestUserService()

	user, err := svc.Create(context.Background(), &dto.CreateUserRequest{
		Username: "bob",
		Password: "secret123",
		IsAdmin:  false,
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if user.Username != "bob" || user.IsAdmin || user.Disabled {
		t.Errorf("用户属性不符: %+v", user)
	}
}

func TestUserService_Create_DuplicateUsername(t *testing.T) {
	svc, _ := setupTestUserService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateUserRequest{Username: "bob", Password: "secret123"})

	_, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "bob", Password: "other456"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("期望 ErrUsernameTaken，实际: %v", err)
	}
}

// ── ResetPassword / Delete 测试 ──

func TestUserService_ResetPassword_NotFound(t *testing.T) {
	svc, _ := setupTestUserService()

	err := svc.ResetPassword(context.Background(), "ghost", &dto.ResetPasswordRequest{Password: "newpass"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	svc, _ := setupTestUserService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateUserRequest{Username: "bob", Password: "secret123"})

	// 不能删除自己
	if err := svc.Delete(ctx, "bob", "bob"); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Errorf("期望 ErrCannotDeleteSelf，实际: %v", err)
	}

	// 他人删除成功
	if err := svc.Delete(ctx, "bob", "admin"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}

	// 再删返回不存在
	if err := svc.Delete(ctx, "bob", "admin"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── EnsureDefaultAdmin 测试 ──

func TestUserService_EnsureDefaultAdmin_CreatesWhenEmpty(t *testing.T) {
	svc, userRepo := setupTestUserService()
	ctx := context.Background()

	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("EnsureDefaultAdmin 失败: %v", err)
	}

	admin, err := userRepo.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatal("默认管理员应已创建")
	}
	if !admin.IsAdmin {
		t.Error("默认账号应具有管理员权限")
	}

	// 再次调用不重复创建
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("重复调用失败: %v", err)
	}
	if n, _ := userRepo.Count(ctx); n != 1 {
		t.Errorf("期望仍为 1 个用户，实际=%d", n)
	}
}

func TestUserService_EnsureDefaultAdmin_SkipsWhenUsersExist(t *testing.T) {
	svc, userRepo := setupTestUserService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateUserRequest{Username: "existing", Password: "secret123"})

	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("EnsureDefaultAdmin 失败: %v", err)
	}
	if _, err := userRepo.GetByUsername(ctx, "admin"); err == nil {
		t.Error("已有用户时不应创建默认管理员")
	}
}
