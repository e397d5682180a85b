package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求（仅管理员）
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	IsAdmin  bool   `json:"is_admin"`
}

// ResetPasswordRequest 管理员重置用户密码请求
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	Username string `json:"username"`
	Disabled bool   `json:"disabled"`
	IsAdmin  bool   `json:"is_admin"`
}
