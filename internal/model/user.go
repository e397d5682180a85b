package model

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Disabled     bool   `gorm:"not null;default:false"                         json:"disabled"`
	IsAdmin      bool   `gorm:"not null;default:false"                         json:"is_admin"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
