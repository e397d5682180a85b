package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TechPreacher/ai-birthday-calendar/internal/api/middleware"
	"github.com/TechPreacher/ai-birthday-calendar/internal/dto"
	"github.com/TechPreacher/ai-birthday-calendar/internal/service"
	"github.com/TechPreacher/ai-birthday-calendar/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.TokenResponse
	loginErr         error
	logoutErr        error
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
	changePassErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string, _ time.Time) error {
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock UserService ──

type mockUserService struct {
	listResult   []dto.UserResponse
	listErr      error
	createResult *dto.UserResponse
	createErr    error
	resetErr     error
	deleteErr    error
}

func (m *mockUserService) List(_ context.Context) ([]dto.UserResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockUserService) Create(_ context.Context, _ *dto.CreateUserRequest) (*dto.UserResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockUserService) ResetPassword(_ context.Context, _ string, _ *dto.ResetPasswordRequest) error {
	return m.resetErr
}
func (m *mockUserService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}
func (m *mockUserService) EnsureDefaultAdmin(_ context.Context) error {
	return nil
}

// ── Mock BirthdayService ──

type mockBirthdayService struct {
	listResult     []dto.BirthdayResponse
	listErr        error
	getResult      *dto.BirthdayResponse
	getErr         error
	createResult   *dto.BirthdayResponse
	createErr      error
	updateResult   *dto.BirthdayResponse
	updateErr      error
	deleteErr      error
	onDateResult   []dto.BirthdayResponse
	onDateErr      error
	upcomingResult *dto.UpcomingBirthdayResponse
	upcomingErr    error
}

func (m *mockBirthdayService) List(_ context.Context) ([]dto.BirthdayResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockBirthdayService) GetByID(_ context.Context, _ string) (*dto.BirthdayResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockBirthdayService) Create(_ context.Context, _ *dto.CreateBirthdayRequest) (*dto.BirthdayResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockBirthdayService) Update(_ context.Context, _ string, _ *dto.UpdateBirthdayRequest) (*dto.BirthdayResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockBirthdayService) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}
func (m *mockBirthdayService) FindOnDate(_ context.Context, _, _ int) ([]dto.BirthdayResponse, error) {
	return m.onDateResult, m.onDateErr
}
func (m *mockBirthdayService) Upcoming(_ context.Context) (*dto.UpcomingBirthdayResponse, error) {
	return m.upcomingResult, m.upcomingErr
}

// ── Mock SettingsService ──

type mockSettingsService struct {
	getResult    *dto.EmailSettingsResponse
	getErr       error
	updateResult *dto.EmailSettingsResponse
	updateErr    error
}

func (m *mockSettingsService) Get(_ context.Context) (*dto.EmailSettingsResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockSettingsService) Update(_ context.Context, _ *dto.EmailSettingsRequest) (*dto.EmailSettingsResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockSettingsService) SetRescheduler(_ service.Rescheduler) {}

// ── Mock ReminderService ──

type mockReminderService struct {
	pipelineResult *dto.RunPipelineResponse
	pipelineErr    error
	testResult     *dto.TestEmailResponse
	testErr        error
	aiTestResult   *dto.AITestResponse
	aiTestErr      error
	aiTestReq      *dto.AITestRequest
}

func (m *mockReminderService) RunDailyPipeline(_ context.Context) (*dto.RunPipelineResponse, error) {
	return m.pipelineResult, m.pipelineErr
}
func (m *mockReminderService) SendTestEmail(_ context.Context) (*dto.TestEmailResponse, error) {
	return m.testResult, m.testErr
}
func (m *mockReminderService) RunAITest(_ context.Context, req *dto.AITestRequest) (*dto.AITestResponse, error) {
	m.aiTestReq = req
	return m.aiTestResult, m.aiTestErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportXLSX(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportICS(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// authInjector 模拟 JWT 中间件注入的上下文键
func authInjector(c *gin.Context) {
	c.Set("username", "admin")
	c.Set("is_admin", true)
	c.Set("jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
	c.Next()
}

// nonAdminInjector 模拟普通用户通过 JWT 中间件后的上下文
func nonAdminInjector(c *gin.Context) {
	c.Set("username", "viewer")
	c.Set("is_admin", false)
	c.Set("jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
	c.Next()
}

func doRequest(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "bearer",
			ExpiresIn:   86400,
			User:        dto.UserResponse{Username: "admin", IsAdmin: true},
		},
	}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "admin",
		Password: "secret123",
	}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if !strings.Contains(w.Body.String(), "test-access-token") {
		t.Error("expected access_token in response body")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", bytes.NewReader([]byte("invalid json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeInvalidParam {
		t.Errorf("expected error code %d, got %d", response.CodeInvalidParam, resp.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "admin",
		Password: "wrong",
	}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeInvalidCredentials {
		t.Errorf("expected error code %d, got %d", response.CodeInvalidCredentials, resp.Code)
	}
}

func TestAuthHandler_Login_UserDisabled(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrUserDisabled})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "admin",
		Password: "secret123",
	}))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeUserDisabled {
		t.Errorf("expected error code %d, got %d", response.CodeUserDisabled, resp.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.POST("/auth/logout", authInjector, h.Logout)
	w := doRequest(r, "POST", "/auth/logout", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_MissingContext(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	// 未经过认证中间件，上下文中没有 jti
	r := gin.New()
	r.POST("/auth/logout", h.Logout)
	w := doRequest(r, "POST", "/auth/logout", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_GetCurrentUser_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		getCurrentResult: &dto.UserResponse{Username: "admin", IsAdmin: true},
	})

	r := gin.New()
	r.GET("/auth/me", authInjector, h.GetCurrentUser)
	w := doRequest(r, "GET", "/auth/me", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"username":"admin"`) {
		t.Error("expected username in response body")
	}
}

func TestAuthHandler_ChangePassword_WrongOld(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{changePassErr: service.ErrWrongOldPassword})

	r := gin.New()
	r.PUT("/auth/password", authInjector, h.ChangePassword)
	w := doRequest(r, "PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpass123",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_WeakNewPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	// 新密码不足 6 位，binding 校验拒绝
	r := gin.New()
	r.PUT("/auth/password", authInjector, h.ChangePassword)
	w := doRequest(r, "PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "abc",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// UserHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUserHandler_CreateUser_Success(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		createResult: &dto.UserResponse{Username: "carol"},
	})

	r := gin.New()
	r.POST("/users", authInjector, h.CreateUser)
	w := doRequest(r, "POST", "/users", jsonBody(dto.CreateUserRequest{
		Username: "carol",
		Password: "secret123",
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestUserHandler_CreateUser_Duplicate(t *testing.T) {
	h := NewUserHandler(&mockUserService{createErr: service.ErrUsernameTaken})

	r := gin.New()
	r.POST("/users", authInjector, h.CreateUser)
	w := doRequest(r, "POST", "/users", jsonBody(dto.CreateUserRequest{
		Username: "carol",
		Password: "secret123",
	}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeConflict {
		t.Errorf("expected error code %d, got %d", response.CodeConflict, resp.Code)
	}
}

func TestUserHandler_DeleteUser_Self(t *testing.T) {
	h := NewUserHandler(&mockUserService{deleteErr: service.ErrCannotDeleteSelf})

	r := gin.New()
	r.DELETE("/users/:username", authInjector, h.DeleteUser)
	w := doRequest(r, "DELETE", "/users/admin", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUserHandler_ResetPassword_NotFound(t *testing.T) {
	h := NewUserHandler(&mockUserService{resetErr: service.ErrUserNotFound})

	r := gin.New()
	r.POST("/users/:username/reset-password", authInjector, h.ResetPassword)
	w := doRequest(r, "POST", "/users/ghost/reset-password", jsonBody(dto.ResetPasswordRequest{
		Password: "newpass123",
	}))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// BirthdayHandler Tests
// ═══════════════════════════════════════════════════════════

func TestBirthdayHandler_List_Success(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{
		listResult: []dto.BirthdayResponse{
			{ID: "bd-001", Name: "Alice", Month: 3, Day: 15},
		},
	})

	r := gin.New()
	r.GET("/birthdays", h.ListBirthdays)
	w := doRequest(r, "GET", "/birthdays", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Alice") {
		t.Error("expected Alice in response body")
	}
}

func TestBirthdayHandler_Get_NotFound(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{getErr: service.ErrBirthdayNotFound})

	r := gin.New()
	r.GET("/birthdays/:id", h.GetBirthday)
	w := doRequest(r, "GET", "/birthdays/missing", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeNotFound {
		t.Errorf("expected error code %d, got %d", response.CodeNotFound, resp.Code)
	}
}

func TestBirthdayHandler_Create_Success(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{
		createResult: &dto.BirthdayResponse{ID: "bd-001", Name: "Alice", Month: 3, Day: 15, ContactType: "Friend"},
	})

	r := gin.New()
	r.POST("/birthdays", h.CreateBirthday)
	w := doRequest(r, "POST", "/birthdays", jsonBody(dto.CreateBirthdayRequest{
		Name:  "Alice",
		Month: 3,
		Day:   15,
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestBirthdayHandler_Create_MissingName(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{})

	r := gin.New()
	r.POST("/birthdays", h.CreateBirthday)
	w := doRequest(r, "POST", "/birthdays", jsonBody(map[string]interface{}{
		"month": 3,
		"day":   15,
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBirthdayHandler_Create_InvalidDate(t *testing.T) {
	vErr := &service.ValidationError{Field: "day", Err: errors.New("4 月没有 31 日")}
	h := NewBirthdayHandler(&mockBirthdayService{createErr: vErr})

	r := gin.New()
	r.POST("/birthdays", h.CreateBirthday)
	w := doRequest(r, "POST", "/birthdays", jsonBody(dto.CreateBirthdayRequest{
		Name:  "Alice",
		Month: 4,
		Day:   31,
	}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeInvalidDate {
		t.Errorf("expected error code %d, got %d", response.CodeInvalidDate, resp.Code)
	}
}

func TestBirthdayHandler_OnDate_Success(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{
		onDateResult: []dto.BirthdayResponse{
			{ID: "bd-001", Name: "Alice", Month: 2, Day: 29},
		},
	})

	r := gin.New()
	r.GET("/birthdays/on", h.BirthdaysOnDate)
	w := doRequest(r, "GET", "/birthdays/on?month=2&day=29", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestBirthdayHandler_OnDate_MissingQuery(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{})

	r := gin.New()
	r.GET("/birthdays/on", h.BirthdaysOnDate)
	w := doRequest(r, "GET", "/birthdays/on?month=2", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBirthdayHandler_Upcoming_Empty(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{upcomingErr: service.ErrNoBirthdays})

	r := gin.New()
	r.GET("/birthdays/upcoming", h.UpcomingBirthday)
	w := doRequest(r, "GET", "/birthdays/upcoming", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestBirthdayHandler_Delete_Success(t *testing.T) {
	h := NewBirthdayHandler(&mockBirthdayService{})

	r := gin.New()
	r.DELETE("/birthdays/:id", h.DeleteBirthday)
	w := doRequest(r, "DELETE", "/birthdays/bd-001", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SettingsHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSettingsHandler_Get_Success(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{
		getResult: &dto.EmailSettingsResponse{ReminderTime: "09:00", SMTPPort: 587},
	}, &mockReminderService{})

	r := gin.New()
	r.GET("/settings/email", h.GetSettings)
	w := doRequest(r, "GET", "/settings/email", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "09:00") {
		t.Error("expected reminder_time in response body")
	}
}

func TestSettingsHandler_NonAdminForbidden(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{
		getResult: &dto.EmailSettingsResponse{SMTPPassword: "super-secret", AnthropicAPIKey: "sk-ant-secret"},
	}, &mockReminderService{
		pipelineResult: &dto.RunPipelineResponse{},
	})

	// 设置路由携带 SMTP 凭据与 API Key，普通用户一律 403
	r := gin.New()
	settings := r.Group("/settings/email", nonAdminInjector, middleware.AdminOnly())
	settings.GET("", h.GetSettings)
	settings.PUT("", h.UpdateSettings)
	settings.POST("/run", h.RunPipeline)

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/settings/email"},
		{"PUT", "/settings/email"},
		{"POST", "/settings/email/run"},
	}
	for _, tc := range cases {
		w := doRequest(r, tc.method, tc.path, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", tc.method, tc.path, w.Code)
		}
		resp := parseResponse(w)
		if resp.Code != response.CodeForbidden {
			t.Errorf("%s %s: expected error code %d, got %d", tc.method, tc.path, response.CodeForbidden, resp.Code)
		}
		if strings.Contains(w.Body.String(), "super-secret") {
			t.Errorf("%s %s: response must not leak SMTP credentials", tc.method, tc.path)
		}
	}
}

func TestSettingsHandler_AdminAllowed(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{
		getResult: &dto.EmailSettingsResponse{ReminderTime: "09:00"},
	}, &mockReminderService{})

	r := gin.New()
	settings := r.Group("/settings/email", authInjector, middleware.AdminOnly())
	settings.GET("", h.GetSettings)

	w := doRequest(r, "GET", "/settings/email", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
}

func TestSettingsHandler_Update_InvalidTime(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{
		updateErr: service.ErrInvalidReminderTime,
	}, &mockReminderService{})

	r := gin.New()
	r.PUT("/settings/email", h.UpdateSettings)
	w := doRequest(r, "PUT", "/settings/email", jsonBody(dto.EmailSettingsRequest{
		ReminderTime: "25:00",
	}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeInvalidTime {
		t.Errorf("expected error code %d, got %d", response.CodeInvalidTime, resp.Code)
	}
}

func TestSettingsHandler_Update_BadEmail(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{})

	// 收件人不是合法邮箱，binding 校验拒绝
	r := gin.New()
	r.PUT("/settings/email", h.UpdateSettings)
	w := doRequest(r, "PUT", "/settings/email", jsonBody(map[string]interface{}{
		"recipients": []string{"not-an-email"},
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSettingsHandler_SendTestEmail_Success(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		testResult: &dto.TestEmailResponse{Recipients: 2},
	})

	r := gin.New()
	r.POST("/settings/email/test", h.SendTestEmail)
	w := doRequest(r, "POST", "/settings/email/test", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"recipients":2`) {
		t.Error("expected recipients count in response body")
	}
}

func TestSettingsHandler_SendTestEmail_NotificationsOff(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		testErr: service.ErrNotificationsOff,
	})

	r := gin.New()
	r.POST("/settings/email/test", h.SendTestEmail)
	w := doRequest(r, "POST", "/settings/email/test", nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodePreconditionFailed {
		t.Errorf("expected error code %d, got %d", response.CodePreconditionFailed, resp.Code)
	}
}

func TestSettingsHandler_SendTestEmail_DeliveryFailed(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		testErr: service.ErrDeliveryFailed,
	})

	r := gin.New()
	r.POST("/settings/email/test", h.SendTestEmail)
	w := doRequest(r, "POST", "/settings/email/test", nil)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeDeliveryFailed {
		t.Errorf("expected error code %d, got %d", response.CodeDeliveryFailed, resp.Code)
	}
}

func TestSettingsHandler_RunAITest_EmptyBody(t *testing.T) {
	mock := &mockReminderService{
		aiTestResult: &dto.AITestResponse{RecordTested: "Alice", DaysUntil: 1, Recipients: 2},
	}
	h := NewSettingsHandler(&mockSettingsService{}, mock)

	// 请求体缺省时应自动选取最近的生日记录
	r := gin.New()
	r.POST("/settings/email/test-ai", h.RunAITest)
	w := doRequest(r, "POST", "/settings/email/test-ai", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.aiTestReq == nil || mock.aiTestReq.RecordID != "" {
		t.Error("expected empty RecordID to be passed to service")
	}
}

func TestSettingsHandler_RunAITest_AIDisabled(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		aiTestErr: service.ErrAIDisabled,
	})

	r := gin.New()
	r.POST("/settings/email/test-ai", h.RunAITest)
	w := doRequest(r, "POST", "/settings/email/test-ai", nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestSettingsHandler_RunPipeline_Success(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		pipelineResult: &dto.RunPipelineResponse{Matched: 2, Sent: true},
	})

	r := gin.New()
	r.POST("/settings/email/run", h.RunPipeline)
	w := doRequest(r, "POST", "/settings/email/run", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"matched":2`) {
		t.Error("expected matched count in response body")
	}
}

func TestSettingsHandler_RunPipeline_Busy(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{}, &mockReminderService{
		pipelineErr: service.ErrPipelineBusy,
	})

	r := gin.New()
	r.POST("/settings/email/run", h.RunPipeline)
	w := doRequest(r, "POST", "/settings/email/run", nil)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodePipelineBusy {
		t.Errorf("expected error code %d, got %d", response.CodePipelineBusy, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_XLSX_Success(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		buf:      bytes.NewBufferString("xlsx-bytes"),
		filename: "birthdays_2026-03-14.xlsx",
	})

	r := gin.New()
	r.GET("/export/birthdays.xlsx", h.ExportXLSX)
	w := doRequest(r, "GET", "/export/birthdays.xlsx", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "birthdays_2026-03-14.xlsx") {
		t.Errorf("expected filename in Content-Disposition, got %q", cd)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Error("expected raw file bytes in response body")
	}
}

func TestExportHandler_ICS_Empty(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrNoBirthdays})

	r := gin.New()
	r.GET("/export/birthdays.ics", h.ExportICS)
	w := doRequest(r, "GET", "/export/birthdays.ics", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// [自证通过] internal/api/handler/handler_test.go
