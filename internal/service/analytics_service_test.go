package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"teamdesk/backend/internal/model"
)

func i64(v int64) *int64       { return &v }
func iptr(v int) *int          { return &v }
func f64(v float64) *float64   { return &v }

func newAnalyticsFixture() (AnalyticsService, *mockAvailabilityRepo) {
	availability := newMockAvailabilityRepo()
	repo := newTestRepository(newMockUserRepo(), newMockMailboxRepo("mb-1"), newMockConversationRepo(), availability, newMockRotationCursorRepo())
	return NewAnalyticsService(repo, zap.NewNop()), availability
}

func TestAnalyzeEmptyWindow(t *testing.T) {
	svc, _ := newAnalyticsFixture()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	resp, err := svc.Analyze(context.Background(), "mb-1", start, end)
	if err != nil {
		t.Fatalf("空窗口应返回全零而非错误: %v", err)
	}
	if resp.TotalSessions != 0 || resp.AvgSessionSeconds != 0 {
		t.Errorf("空窗口各项指标应为零，实际 %+v", resp)
	}
	if len(resp.SecondsByStatus) != 0 {
		t.Errorf("空窗口不应有分状态累计，实际 %v", resp.SecondsByStatus)
	}
}

func TestAnalyzeFoldsHistory(t *testing.T) {
	svc, availability := newAnalyticsFixture()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	availability.history = []model.AgentStatusHistory{
		{
			MailboxID: "mb-1", FromStatus: model.StatusOnline, ToStatus: model.StatusAway,
			DurationSeconds: i64(600), ChangeReason: model.ReasonAutoInactivity,
			ConversationsHandled: iptr(4), RepliesSent: iptr(10), AvgResponseSeconds: f64(30),
			CreatedAt: base.Add(time.Hour),
		},
		{
			MailboxID: "mb-1", FromStatus: model.StatusOnline, ToStatus: model.StatusOffline,
			DurationSeconds: i64(1200), ChangeReason: model.ReasonManual,
			AvgResponseSeconds: f64(60),
			CreatedAt:          base.Add(2 * time.Hour),
		},
		{
			// 无时长字段：不参与时长统计
			MailboxID: "mb-1", FromStatus: model.StatusAway, ToStatus: model.StatusOnline,
			ChangeReason: model.ReasonScheduled,
			RepliesSent:  iptr(2),
			CreatedAt:    base.Add(3 * time.Hour),
		},
		{
			// 窗口之外：不参与任何统计
			MailboxID: "mb-1", FromStatus: model.StatusOnline, ToStatus: model.StatusAway,
			DurationSeconds: i64(9999), ChangeReason: model.ReasonManual,
			CreatedAt:       base.AddDate(0, 1, 0),
		},
	}

	resp, err := svc.Analyze(context.Background(), "mb-1", base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Analyze 失败: %v", err)
	}

	// 总数计窗口内全部 3 条；平均时长只除以带时长的 2 条
	if resp.TotalSessions != 3 {
		t.Errorf("窗口内记录应为 3 条，实际 %d", resp.TotalSessions)
	}
	if resp.AvgSessionSeconds != 900 {
		t.Errorf("平均会话时长应为 900，实际 %v", resp.AvgSessionSeconds)
	}
	if resp.SecondsByStatus[model.StatusOnline] != 1800 {
		t.Errorf("online 累计应为 1800，实际 %d", resp.SecondsByStatus[model.StatusOnline])
	}
	if resp.ConversationsHandled != 4 {
		t.Errorf("处理会话数应为 4，实际 %d", resp.ConversationsHandled)
	}
	if resp.RepliesSent != 12 {
		t.Errorf("回复数应为 12，实际 %d", resp.RepliesSent)
	}
	if resp.AvgResponseSeconds != 45 {
		t.Errorf("平均响应时长应为 45，实际 %v", resp.AvgResponseSeconds)
	}
}

func TestAnalyzeInvalidRange(t *testing.T) {
	svc, _ := newAnalyticsFixture()
	now := time.Now()

	_, err := svc.Analyze(context.Background(), "mb-1", now, now)
	if !errors.Is(err, ErrAnalyticsInvalidRange) {
		t.Errorf("start == end 应被拒绝，实际 %v", err)
	}
}

func TestAnalyzeMailboxNotFound(t *testing.T) {
	svc, _ := newAnalyticsFixture()
	start := time.Now().Add(-time.Hour)

	_, err := svc.Analyze(context.Background(), "mb-missing", start, time.Now())
	if !errors.Is(err, ErrAvailabilityMailboxNotFound) {
		t.Errorf("应返回 ErrAvailabilityMailboxNotFound，实际 %v", err)
	}
}

func TestExportProducesWorkbook(t *testing.T) {
	svc, availability := newAnalyticsFixture()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	availability.history = []model.AgentStatusHistory{
		{
			MailboxID: "mb-1", FromStatus: model.StatusOnline, ToStatus: model.StatusAway,
			DurationSeconds: i64(600), ChangeReason: model.ReasonManual,
			CreatedAt:       base.Add(time.Hour),
		},
	}

	data, filename, err := svc.Export(context.Background(), "mb-1", base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Export 失败: %v", err)
	}
	if filename != "availability_20260801_20260808.xlsx" {
		t.Errorf("文件名不符合预期: %s", filename)
	}
	// xlsx 本质是 zip，校验魔数即可
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("导出内容应为合法的 xlsx 文件")
	}
}

