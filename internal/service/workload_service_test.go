package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"teamdesk/backend/internal/dto"
	"teamdesk/backend/internal/model"
)

func TestWorkloadDistribution(t *testing.T) {
	users := newMockUserRepo()
	conversations := newMockConversationRepo()
	availability := newMockAvailabilityRepo()
	repo := newTestRepository(users, newMockMailboxRepo("mb-1"), conversations, availability, newMockRotationCursorRepo())
	svc := NewWorkloadService(repo, zap.NewNop())

	users.add(&model.User{UserID: "u-1", Name: "张伟", Role: model.RoleMember, IsActive: true}, "mb-1")
	users.add(&model.User{UserID: "u-2", Name: "李娜", Role: model.RoleLeader, IsActive: true}, "mb-1")
	now := time.Now()
	availability.add(&model.AgentStatus{
		UserID: "u-1", MailboxID: "mb-1", Status: model.StatusBusy,
		LastActivityAt: now, LastStatusChangeAt: now,
	})
	conversations.setOpenCount("mb-1", "u-1", 3)

	resp, err := svc.Distribution(context.Background(), "mb-1")
	if err != nil {
		t.Fatalf("Distribution 失败: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("应返回 2 条负载记录，实际 %d", len(resp.Entries))
	}

	byID := make(map[string]dto.WorkloadEntry)
	for _, e := range resp.Entries {
		byID[e.UserID] = e
	}
	if e := byID["u-1"]; e.OpenConversations != 3 || e.Status != model.StatusBusy || !e.AvailableForAssignment {
		t.Errorf("u-1 负载记录不符合预期: %+v", e)
	}
	// 无状态记录 ⇒ offline 且不可接单，负载为 0
	if e := byID["u-2"]; e.Status != model.StatusOffline || e.AvailableForAssignment || e.OpenConversations != 0 {
		t.Errorf("u-2 负载记录不符合预期: %+v", e)
	}
}

func TestWorkloadDistributionMailboxNotFound(t *testing.T) {
	repo := newTestRepository(newMockUserRepo(), newMockMailboxRepo(), newMockConversationRepo(), newMockAvailabilityRepo(), newMockRotationCursorRepo())
	svc := NewWorkloadService(repo, zap.NewNop())

	_, err := svc.Distribution(context.Background(), "mb-missing")
	if !errors.Is(err, ErrAvailabilityMailboxNotFound) {
		t.Errorf("应返回 ErrAvailabilityMailboxNotFound，实际 %v", err)
	}
}

