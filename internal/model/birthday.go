package model

// ── 联系人分类 ──

// ContactType 联系人分类（仅用于展示与筛选，不影响提醒逻辑）
type ContactType string

const (
	ContactTypeFriend   ContactType = "Friend"
	ContactTypeBusiness ContactType = "Business"
)

// Valid 检查分类是否属于闭集
func (t ContactType) Valid() bool {
	return t == ContactTypeFriend || t == ContactTypeBusiness
}

// Birthday 生日记录表 — 对应 birthdays
//
// Month/Day 为周期性日期（每年重复），BirthYear 可缺省；
// 缺省时无法计算年龄（"无年份记录"）。
// 2月29日 无条件允许录入，非闰年的到期日处理见 service 层的日期引擎。
type Birthday struct {
	BirthdayID  string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string      `gorm:"type:varchar(100);not null"                     json:"name"`
	Month       int         `gorm:"not null"                                       json:"month"`
	Day         int         `gorm:"not null"                                       json:"day"`
	BirthYear   *int        `gorm:""                                               json:"birth_year,omitempty"`
	Note        string      `gorm:"type:text"                                      json:"note,omitempty"`
	ContactType ContactType `gorm:"type:varchar(20);not null;default:'Friend'"     json:"contact_type"`
	BaseModel
}

// TableName 指定表名
func (Birthday) TableName() string { return "birthdays" }
