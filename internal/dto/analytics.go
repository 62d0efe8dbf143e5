package dto

// ── 统计分析模块 DTO ──

// AnalyticsRequest 统计查询参数
type AnalyticsRequest struct {
	Start string `form:"start" binding:"required"` // RFC3339 或 "2006-01-02"
	End   string `form:"end"   binding:"required"`
}

// AnalyticsResponse 时间窗口内的会话统计
type AnalyticsResponse struct {
	MailboxID string `json:"mailbox_id"`
	Start     string `json:"start"`
	End       string `json:"end"`

	// 会话时长统计
	TotalSessions     int64            `json:"total_sessions"`
	AvgSessionSeconds float64          `json:"avg_session_seconds"` // 分母为带时长的记录数
	SecondsByStatus   map[string]int64 `json:"seconds_by_status"`   // from_status → 累计秒数

	// 生产力统计（仅统计携带对应字段的记录）
	ConversationsHandled int64   `json:"conversations_handled"`
	RepliesSent          int64   `json:"replies_sent"`
	AvgResponseSeconds   float64 `json:"avg_response_seconds"`
}

