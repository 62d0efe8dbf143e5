package dto

// ── 自动分配模块 DTO ──

// 分配结果取值
const (
	AssignOutcomeAssigned = "assigned"
	AssignOutcomeSkipped  = "skipped"
)

// AutoAssignResponse 自动分配响应
// Outcome=assigned 时 Assignee 非空；Outcome=skipped 时 SkipReason 非空
type AutoAssignResponse struct {
	Outcome        string            `json:"outcome"` // assigned | skipped
	ConversationID string            `json:"conversation_id"`
	Assignee       *AssigneeResponse `json:"assignee,omitempty"`
	SkipReason     string            `json:"skip_reason,omitempty"`
	Diagnostics    string            `json:"diagnostics,omitempty"`
	MatchRationale string            `json:"match_rationale,omitempty"`
	Confidence     *float64          `json:"confidence,omitempty"`
	Urgency        *string           `json:"urgency,omitempty"`
}

// AssigneeResponse 选中成员信息
type AssigneeResponse struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Workload int    `json:"workload"` // 分配时刻的未结会话数
	Score    int    `json:"score"`
}

// ── 负载分布 DTO ──

// WorkloadEntry 单个成员的负载
type WorkloadEntry struct {
	UserID                 string `json:"user_id"`
	Name                   string `json:"name"`
	Role                   string `json:"role"`
	Status                 string `json:"status"`
	OpenConversations      int    `json:"open_conversations"`
	AvailableForAssignment bool   `json:"available_for_assignment"`
}

// WorkloadResponse 收件箱负载分布响应
type WorkloadResponse struct {
	MailboxID string          `json:"mailbox_id"`
	Entries   []WorkloadEntry `json:"entries"`
}

