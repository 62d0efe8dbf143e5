package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"teamdesk/backend/internal/model"
	"teamdesk/backend/internal/repository"
	pkgerrors "teamdesk/backend/pkg/errors"
)

// ── 内存版 Repository 实现，供服务层单元测试使用 ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // userID → user
	// mailboxID → 成员 userID 列表（保持加入顺序）
	members map[string][]string
	failAll bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:   make(map[string]*model.User),
		members: make(map[string][]string),
	}
}

func (m *mockUserRepo) add(user *model.User, mailboxIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	for _, mb := range mailboxIDs {
		m.members[mb] = append(m.members[mb], user.UserID)
	}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) ListByMailbox(_ context.Context, mailboxID string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, fmt.Errorf("模拟数据库故障")
	}
	var out []model.User
	for _, userID := range m.members[mailboxID] {
		if user, ok := m.users[userID]; ok && user.IsActive {
			out = append(out, *user)
		}
	}
	return out, nil
}

type mockMailboxRepo struct {
	mailboxes map[string]*model.Mailbox
	members   map[string]map[string]bool // mailboxID → userID 集合
}

func newMockMailboxRepo(ids ...string) *mockMailboxRepo {
	m := &mockMailboxRepo{
		mailboxes: make(map[string]*model.Mailbox),
		members:   make(map[string]map[string]bool),
	}
	for _, id := range ids {
		m.mailboxes[id] = &model.Mailbox{MailboxID: id, Name: "测试收件箱"}
	}
	return m
}

func (m *mockMailboxRepo) addMember(mailboxID string, userIDs ...string) {
	if m.members[mailboxID] == nil {
		m.members[mailboxID] = make(map[string]bool)
	}
	for _, userID := range userIDs {
		m.members[mailboxID][userID] = true
	}
}

func (m *mockMailboxRepo) GetByID(_ context.Context, id string) (*model.Mailbox, error) {
	mb, ok := m.mailboxes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return mb, nil
}

func (m *mockMailboxRepo) HasMember(_ context.Context, mailboxID, userID string) (bool, error) {
	return m.members[mailboxID][userID], nil
}

type mockConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	notes         []model.ConversationNote
	// 固化的未结会话数；AssignWithNote 不回写该计数
	openCounts map[string]map[string]int // mailboxID → userID → count
	assignErr  error
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		conversations: make(map[string]*model.Conversation),
		openCounts:    make(map[string]map[string]int),
	}
}

func (m *mockConversationRepo) add(conv *model.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.ConversationID] = conv
}

func (m *mockConversationRepo) setOpenCount(mailboxID, userID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openCounts[mailboxID] == nil {
		m.openCounts[mailboxID] = make(map[string]int)
	}
	m.openCounts[mailboxID][userID] = n
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (m *mockConversationRepo) CountOpenByAssignee(_ context.Context, mailboxID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for userID, n := range m.openCounts[mailboxID] {
		out[userID] = n
	}
	return out, nil
}

func (m *mockConversationRepo) AssignWithNote(_ context.Context, conversationID, assigneeID, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignErr != nil {
		return m.assignErr
	}
	conv, ok := m.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conv.AssigneeID = &assigneeID
	m.notes = append(m.notes, model.ConversationNote{
		ConversationID: conversationID,
		Body:           note,
	})
	return nil
}

type mockAvailabilityRepo struct {
	mu      sync.Mutex
	records map[string]*model.AgentStatus // userID+"/"+mailboxID → record
	history []model.AgentStatusHistory
	nextID  int
	// Transition 注入故障（按 userID 匹配）
	transitionErrFor map[string]error
	// 到期查询注入故障（分批次）
	scheduledDueErr error
	autoAwayDueErr  error
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{
		records:          make(map[string]*model.AgentStatus),
		transitionErrFor: make(map[string]error),
	}
}

func recordKey(userID, mailboxID string) string { return userID + "/" + mailboxID }

func (m *mockAvailabilityRepo) add(record *model.AgentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.AgentStatusID == "" {
		m.nextID++
		record.AgentStatusID = fmt.Sprintf("as-%d", m.nextID)
	}
	m.records[recordKey(record.UserID, record.MailboxID)] = record
}

func (m *mockAvailabilityRepo) GetByUserAndMailbox(_ context.Context, userID, mailboxID string) (*model.AgentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey(userID, mailboxID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *mockAvailabilityRepo) ListByMailbox(_ context.Context, mailboxID string) ([]model.AgentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AgentStatus
	for _, record := range m.records {
		if record.MailboxID == mailboxID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) Create(_ context.Context, record *model.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(record.UserID, record.MailboxID)
	if _, ok := m.records[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.nextID++
	record.AgentStatusID = fmt.Sprintf("as-%d", m.nextID)
	clone := *record
	m.records[key] = &clone
	return nil
}

func (m *mockAvailabilityRepo) Save(_ context.Context, record *model.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *record
	m.records[recordKey(record.UserID, record.MailboxID)] = &clone
	return nil
}

func (m *mockAvailabilityRepo) Transition(_ context.Context, record *model.AgentStatus, entry *model.AgentStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.transitionErrFor[record.UserID]; ok {
		return err
	}
	if record.AgentStatusID == "" {
		m.nextID++
		record.AgentStatusID = fmt.Sprintf("as-%d", m.nextID)
	}
	clone := *record
	m.records[recordKey(record.UserID, record.MailboxID)] = &clone
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockAvailabilityRepo) ListScheduledReturnDue(_ context.Context, now time.Time) ([]model.AgentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduledDueErr != nil {
		return nil, m.scheduledDueErr
	}
	var out []model.AgentStatus
	for _, record := range m.records {
		if record.Status == model.StatusAway &&
			record.ScheduledReturnAt != nil && !record.ScheduledReturnAt.After(now) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) ListAutoAwayDue(_ context.Context, now time.Time) ([]model.AgentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autoAwayDueErr != nil {
		return nil, m.autoAwayDueErr
	}
	var out []model.AgentStatus
	for _, record := range m.records {
		if record.Status == model.StatusOnline &&
			record.AutoAwayAt != nil && !record.AutoAwayAt.After(now) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) ListHistoryInRange(_ context.Context, mailboxID string, start, end time.Time) ([]model.AgentStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AgentStatusHistory
	for _, entry := range m.history {
		if entry.MailboxID == mailboxID &&
			!entry.CreatedAt.Before(start) && entry.CreatedAt.Before(end) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) ListHistoryPage(_ context.Context, mailboxID, userID string, offset, limit int) ([]model.AgentStatusHistory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.AgentStatusHistory
	// 倒序遍历模拟 created_at DESC
	for i := len(m.history) - 1; i >= 0; i-- {
		entry := m.history[i]
		if entry.MailboxID != mailboxID {
			continue
		}
		if userID != "" && entry.UserID != userID {
			continue
		}
		matched = append(matched, entry)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockAvailabilityRepo) historyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

type mockRotationCursorRepo struct {
	mu        sync.Mutex
	positions map[string]int
	// 下一次 CAS 强制失败的次数（模拟并发冲突）
	conflictsLeft int
}

func newMockRotationCursorRepo() *mockRotationCursorRepo {
	return &mockRotationCursorRepo{positions: make(map[string]int)}
}

func (m *mockRotationCursorRepo) Get(_ context.Context, mailboxID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[mailboxID], nil
}

func (m *mockRotationCursorRepo) CompareAndSwap(_ context.Context, mailboxID string, old, new int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		m.positions[mailboxID] = old + 1 // 被并发方推进
		return pkgerrors.ErrOptimisticLock
	}
	if m.positions[mailboxID] != old {
		return pkgerrors.ErrOptimisticLock
	}
	m.positions[mailboxID] = new
	return nil
}

// newTestRepository 组装内存版 Repository 聚合
func newTestRepository(
	users *mockUserRepo,
	mailboxes *mockMailboxRepo,
	conversations *mockConversationRepo,
	availability *mockAvailabilityRepo,
	cursors *mockRotationCursorRepo,
) *repository.Repository {
	return &repository.Repository{
		User:           users,
		Mailbox:        mailboxes,
		Conversation:   conversations,
		Availability:   availability,
		RotationCursor: cursors,
	}
}

