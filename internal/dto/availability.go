package dto

import "time"

// ── 在线状态模块 DTO ──

// UpdateAvailabilityRequest 设置本人状态请求
type UpdateAvailabilityRequest struct {
	Status        string  `json:"status"         binding:"required,oneof=online busy away offline"`
	CustomMessage *string `json:"custom_message" binding:"omitempty,max=200"`
}

// ScheduledReturnRequest 设置预定返回请求
type ScheduledReturnRequest struct {
	ReturnAt      time.Time `json:"return_at"      binding:"required"`
	CustomMessage *string   `json:"custom_message" binding:"omitempty,max=200"`
}

// DayHoursRequest 单日工作时间；null 表示当天不工作
type DayHoursRequest struct {
	Start string `json:"start" binding:"required,len=5"` // "09:00"
	End   string `json:"end"   binding:"required,len=5"` // "18:00"
}

// BusinessHoursRequest 设置工作时间配置请求
type BusinessHoursRequest struct {
	Timezone string                      `json:"timezone" binding:"required,max=64"`
	Days     map[string]*DayHoursRequest `json:"days"     binding:"required"`
}

// AvailabilityResponse 单人状态响应
type AvailabilityResponse struct {
	UserID             string     `json:"user_id"`
	MailboxID          string     `json:"mailbox_id"`
	Status             string     `json:"status"`
	CustomMessage      *string    `json:"custom_message,omitempty"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	LastStatusChangeAt time.Time  `json:"last_status_change_at"`
	ScheduledReturnAt  *time.Time `json:"scheduled_return_at,omitempty"`
}

// HistoryListRequest 状态变更历史分页查询参数
type HistoryListRequest struct {
	PaginationRequest
	UserID string `form:"user_id" binding:"omitempty,uuid"` // 为空时查询整个收件箱
}

// HistoryEntryResponse 单条状态变更历史
type HistoryEntryResponse struct {
	UserID          string    `json:"user_id"`
	FromStatus      string    `json:"from_status"`
	ToStatus        string    `json:"to_status"`
	DurationSeconds *int64    `json:"duration_seconds,omitempty"`
	ChangeReason    string    `json:"change_reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// TeamAvailabilityMember 团队状态列表中的单个成员
type TeamAvailabilityMember struct {
	UserID            string     `json:"user_id"`
	Name              string     `json:"name"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	CustomMessage     *string    `json:"custom_message,omitempty"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
	ScheduledReturnAt *time.Time `json:"scheduled_return_at,omitempty"`
}

// TeamAvailabilityResponse 团队状态响应
type TeamAvailabilityResponse struct {
	MailboxID string                   `json:"mailbox_id"`
	Members   []TeamAvailabilityMember `json:"members"`
}

