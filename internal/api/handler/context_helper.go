package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TechPreacher/ai-birthday-calendar/pkg/response"
)

// MustGetUsername 从 Gin 上下文中安全提取 username。
// 如果 JWT 中间件未正确注入 username，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUsername(c *gin.Context) (string, bool) {
	v, exists := c.Get("username")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetTokenInfo 从 Gin 上下文中提取 jti 与过期时间（登出场景）。
func MustGetTokenInfo(c *gin.Context) (string, time.Time, bool) {
	jtiV, exists := c.Get("jti")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", time.Time{}, false
	}
	jti, ok := jtiV.(string)
	if !ok || jti == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", time.Time{}, false
	}

	expV, exists := c.Get("token_exp")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", time.Time{}, false
	}
	exp, ok := expV.(time.Time)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", time.Time{}, false
	}

	return jti, exp, true
}
