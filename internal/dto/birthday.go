package dto

// ── 生日模块 DTO ──

// CreateBirthdayRequest 创建生日记录请求
type CreateBirthdayRequest struct {
	Name        string `json:"name"         binding:"required,max=100"`
	Month       int    `json:"month"        binding:"required,min=1,max=12"`
	Day         int    `json:"day"          binding:"required,min=1,max=31"`
	BirthYear   *int   `json:"birth_year"`
	Note        string `json:"note"`
	ContactType string `json:"contact_type"`
}

// UpdateBirthdayRequest 更新生日记录请求（整体替换，缺省字段保留原值）
type UpdateBirthdayRequest struct {
	Name        *string `json:"name"         binding:"omitempty,max=100"`
	Month       *int    `json:"month"        binding:"omitempty,min=1,max=12"`
	Day         *int    `json:"day"          binding:"omitempty,min=1,max=31"`
	BirthYear   *int    `json:"birth_year"`
	Note        *string `json:"note"`
	ContactType *string `json:"contact_type"`
}

// BirthdayOnDateRequest 按日查询请求（日历单元格视图）
type BirthdayOnDateRequest struct {
	Month int `form:"month" binding:"required,min=1,max=12"`
	Day   int `form:"day"   binding:"required,min=1,max=31"`
}

// BirthdayResponse 生日记录响应
type BirthdayResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	BirthYear   *int   `json:"birth_year,omitempty"`
	Note        string `json:"note,omitempty"`
	ContactType string `json:"contact_type"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// UpcomingBirthdayResponse 最近一个即将到来的生日
type UpcomingBirthdayResponse struct {
	Birthday  BirthdayResponse `json:"birthday"`
	DaysUntil int              `json:"days_until"`
	// Age 当年将满的年龄；无出生年份时缺省
	Age *int `json:"age,omitempty"`
}
